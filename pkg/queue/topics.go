// Package queue 定义领域事件主题常量.
package queue

// 主题命名：cb.<域>.<动作>.
const (
	TopicFileUploaded = "cb.file.uploaded" // 一批上传提交成功
	TopicFileTrashed  = "cb.file.trashed"
	TopicFileRestored = "cb.file.restored"
	TopicFilePurged   = "cb.file.purged"   // 记录与字节被永久删除
	TopicFileOrphaned = "cb.file.orphaned" // 字节缺失，记录被自愈删除
	TopicFileRenamed  = "cb.file.renamed"
	TopicFileMoved    = "cb.file.moved"

	TopicFolderTrashed  = "cb.folder.trashed"
	TopicFolderRestored = "cb.folder.restored"
	TopicFolderPurged   = "cb.folder.purged"

	TopicShareCreated  = "cb.share.created"
	TopicShareRevoked  = "cb.share.revoked"
	TopicShareAccessed = "cb.share.accessed"

	TopicQuotaExceeded = "cb.quota.exceeded"
)

// 主题分组.
var (
	FileTopics = []string{
		TopicFileUploaded, TopicFileTrashed, TopicFileRestored, TopicFilePurged,
		TopicFileOrphaned, TopicFileRenamed, TopicFileMoved,
	}

	FolderTopics = []string{TopicFolderTrashed, TopicFolderRestored, TopicFolderPurged}

	ShareTopics = []string{TopicShareCreated, TopicShareRevoked, TopicShareAccessed}

	QuotaTopics = []string{TopicQuotaExceeded}
)

// AllTopics 全部主题.
func AllTopics() []string {
	out := make([]string, 0, len(FileTopics)+len(FolderTopics)+len(ShareTopics)+len(QuotaTopics))
	out = append(out, FileTopics...)
	out = append(out, FolderTopics...)
	out = append(out, ShareTopics...)

	return append(out, QuotaTopics...)
}
