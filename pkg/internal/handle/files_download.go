package handle

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

const (
	dispositionAttachment = "attachment"
	dispositionInline     = "inline"

	previewCacheControl = "public, max-age=86400"
	defaultContentType  = "application/octet-stream"
)

// contentDisposition 使用 RFC 5987 编码文件名.
func contentDisposition(kind, name string) string {
	return kind + "; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// serveContent 把文件内容写入响应并关闭 Body，Size < 0 时不写 Content-Length.
func serveContent(c *gin.Context, fc *types.FileContent, kind string) {
	defer func() { _ = fc.Body.Close() }()

	ct := fc.MimeType
	if ct == "" {
		ct = defaultContentType
	}

	headers := map[string]string{"Content-Disposition": contentDisposition(kind, fc.Name)}
	if kind == dispositionInline {
		headers["Cache-Control"] = previewCacheControl
	}

	c.DataFromReader(http.StatusOK, fc.Size, ct, fc.Body, headers)
}

// DownloadFile 下载文件.
//
//	@Summary	下载文件
//	@Tags		文件
//	@Produce	application/octet-stream
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{file}		file
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/files/{id}/download [get]
func DownloadFile(c *gin.Context) {
	openOwned(c, model.ActionDownload, dispositionAttachment)
}

// PreviewFile 内联预览文件.
//
//	@Summary	预览文件
//	@Tags		文件
//	@Produce	application/octet-stream
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{file}		file
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/files/{id}/preview [get]
func PreviewFile(c *gin.Context) {
	openOwned(c, model.ActionPreview, dispositionInline)
}

func openOwned(c *gin.Context, action model.Action, kind string) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	fc, err := service.NewFileService(ctx).Open(ctx, uid, c.Param("id"), action)
	if err != nil {
		fail(c, err)
		return
	}

	serveContent(c, fc, kind)
}

// FileThumbnail 图片返回原图，视频返回生成的缩略图.
//
//	@Summary	缩略图
//	@Tags		文件
//	@Produce	image/jpeg
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{file}		file
//	@Failure	400	{object}	ErrorResponse
//	@Failure	502	{object}	ErrorResponse
//	@Router		/api/files/{id}/thumbnail [get]
func FileThumbnail(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	fc, err := service.NewThumbnailService(ctx).ForUser(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	serveContent(c, fc, dispositionInline)
}
