package handle

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// uploadField multipart 中文件字段名.
const uploadField = "files"

// ListFiles 列出文件夹内容或最近文件.
//
//	@Summary	文件列表
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		folderId	query		string	false	"文件夹 ID，空为根目录"
//	@Param		recent		query		bool	false	"最近上传"
//	@Param		limit		query		int		false	"最近模式条数，默认 10"
//	@Param		type		query		string	false	"image|video|audio|document"
//	@Success	200			{object}	types.ListFilesResponse
//	@Router		/api/files [get]
func ListFiles(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var q types.ListFilesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, invalidInput(err))
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).List(ctx, uid, q)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadFiles 上传一批文件，整批大小超出剩余配额时全部拒绝.
//
//	@Summary	上传文件
//	@Tags		文件
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	BearerAuth
//	@Param		files		formData	file	true	"文件，最多 10 个"
//	@Param		folderId	formData	string	false	"目标文件夹"
//	@Success	200			{object}	types.UploadResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/api/files/upload [post]
func UploadFiles(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, errs.Validation("invalid multipart form"))
		return
	}

	defer func() { _ = form.RemoveAll() }()

	headers := form.File[uploadField]
	items := make([]types.UploadItem, 0, len(headers))

	for _, fh := range headers {
		items = append(items, uploadItem(fh))
	}

	var folderID *string
	if v := form.Value["folderId"]; len(v) > 0 {
		folderID = optionalID(v[0])
	}

	ctx := c.Request.Context()

	resp, err := service.NewFileService(ctx).Upload(ctx, uid, folderID, items)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func uploadItem(fh *multipart.FileHeader) types.UploadItem {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
			ct = byExt
		}
	}

	return types.UploadItem{
		Name:     fh.Filename,
		Size:     fh.Size,
		MimeType: ct,
		Open:     func() (types.ReadCloser, error) { return fh.Open() },
	}
}

// RenameFile 重命名文件.
//
//	@Summary	重命名文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"文件 ID"
//	@Param		body	body		types.RenameRequest	true	"新名称"
//	@Success	200		{object}	model.File
//	@Router		/api/files/{id}/rename [post]
func RenameFile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.RenameRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewFileService(ctx).Rename(ctx, uid, c.Param("id"), req.NewName)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file renamed", "file": f})
}

// MoveFile 移动文件到文件夹，folderId 为空移到根目录.
//
//	@Summary	移动文件
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"文件 ID"
//	@Param		body	body		types.MoveRequest	true	"目标文件夹"
//	@Success	200		{object}	model.File
//	@Router		/api/files/{id}/move [post]
func MoveFile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.MoveRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewFileService(ctx).Move(ctx, uid, c.Param("id"), req.FolderID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file moved", "file": f})
}

// UpdateFileMeta 修改描述与标签.
//
//	@Summary	修改文件描述与标签
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"文件 ID"
//	@Param		body	body		types.UpdateMetaRequest	true	"描述与标签"
//	@Success	200		{object}	model.File
//	@Router		/api/files/{id}/meta [patch]
func UpdateFileMeta(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.UpdateMetaRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewFileService(ctx).UpdateMeta(ctx, uid, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file updated", "file": f})
}

// ToggleFavorite 切换收藏状态.
//
//	@Summary	切换收藏
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{object}	types.FavoriteResponse
//	@Router		/api/files/{id}/favorite [post]
func ToggleFavorite(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	fav, err := service.NewFileService(ctx).ToggleFavorite(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	msg := "removed from favorites"
	if fav {
		msg = "added to favorites"
	}

	c.JSON(http.StatusOK, types.FavoriteResponse{Message: msg, IsFavorite: fav})
}

// Favorites 收藏的文件.
//
//	@Summary	收藏列表
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string][]model.File
//	@Router		/api/favorites [get]
func Favorites(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	files, err := service.NewQueryService(ctx).Favorites(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// TrashFile 移入回收站.
//
//	@Summary	删除文件（移入回收站）
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{object}	MessageResponse
//	@Router		/api/files/{id} [delete]
func TrashFile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if err := service.NewFileService(ctx).Trash(ctx, uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "file moved to trash"})
}

// Search 按名称、描述与标签搜索.
//
//	@Summary	搜索
//	@Tags		文件
//	@Produce	json
//	@Security	BearerAuth
//	@Param		q	query		string	true	"关键字"
//	@Success	200	{object}	types.SearchResponse
//	@Router		/api/search [get]
func Search(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewQueryService(ctx).Search(ctx, uid, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
