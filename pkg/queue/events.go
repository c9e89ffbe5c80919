package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/cloudbox/pkg/configs"
	nlog "github.com/yeisme/cloudbox/pkg/log"
)

// Emitter 按配置开关发布领域事件，发布失败只记录日志.
// 零值与 nil 都可安全调用，此时不发布任何事件.
type Emitter struct {
	pub      message.Publisher
	producer string
	enabled  map[string]bool
}

// NewEmitter 创建事件发布器.
func NewEmitter(pub message.Publisher, cfg configs.EventsConfig, producer string) *Emitter {
	enabled := map[string]bool{
		TopicFileUploaded:   cfg.File.Uploaded,
		TopicFileTrashed:    cfg.File.Trashed,
		TopicFileRestored:   cfg.File.Restored,
		TopicFilePurged:     cfg.File.Purged,
		TopicFileOrphaned:   cfg.File.Orphaned,
		TopicFileRenamed:    cfg.File.Renamed,
		TopicFileMoved:      cfg.File.Moved,
		TopicFolderTrashed:  cfg.Folder.Trashed,
		TopicFolderRestored: cfg.Folder.Restored,
		TopicFolderPurged:   cfg.Folder.Purged,
		TopicShareCreated:   cfg.Share.Created,
		TopicShareRevoked:   cfg.Share.Revoked,
		TopicShareAccessed:  cfg.Share.Accessed,
		TopicQuotaExceeded:  cfg.Quota.Exceeded,
	}

	if !cfg.Enabled {
		for k := range enabled {
			enabled[k] = false
		}
	}

	return &Emitter{pub: pub, producer: producer, enabled: enabled}
}

// Enabled 主题是否会被发布.
func (e *Emitter) Enabled(topic string) bool {
	return e != nil && e.pub != nil && e.enabled[topic]
}

// Emit 发布事件，返回是否发布成功.
func (e *Emitter) Emit(ctx context.Context, topic string, payload any) bool {
	if !e.Enabled(topic) {
		return false
	}

	opts := []func(*EventHeader){WithProducer(e.producer)}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("encode event failed")
		return false
	}

	if err := e.pub.Publish(topic, msg); err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("publish event failed")
		return false
	}

	return true
}
