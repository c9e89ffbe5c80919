package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// requestBaseURL 请求的外部地址，server.public_url 优先（由 service 处理）.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}

	if p := c.GetHeader("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}

	return scheme + "://" + c.Request.Host
}

// CreateShare 创建分享链接，旧链接失效.
//
//	@Summary	创建分享
//	@Tags		分享
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"文件 ID"
//	@Param		body	body		types.CreateShareRequest	false	"有效天数，默认 30"
//	@Success	200		{object}	types.ShareResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/files/{id}/share [post]
func CreateShare(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.CreateShareRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewShareService(ctx).Create(ctx, uid, c.Param("id"), req.ExpiresIn, requestBaseURL(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RevokeShare 取消分享.
//
//	@Summary	取消分享
//	@Tags		分享
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{object}	MessageResponse
//	@Router		/api/files/{id}/share [delete]
func RevokeShare(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if err := service.NewShareService(ctx).Revoke(ctx, uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "share revoked"})
}

// ListShared 正在分享的文件.
//
//	@Summary	分享列表
//	@Tags		分享
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string][]model.File
//	@Router		/api/shared [get]
func ListShared(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	files, err := service.NewShareService(ctx).ListShared(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

// SharePage 匿名访问者的分享页面.
//
//	@Summary	分享页面
//	@Tags		分享
//	@Produce	html
//	@Param		token	path	string	true	"分享令牌"
//	@Success	200
//	@Failure	404
//	@Failure	410
//	@Router		/share/{token} [get]
func SharePage(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := service.NewShareService(ctx).View(ctx, c.Param("token"))
	if err != nil {
		renderShareError(c, err)
		return
	}

	renderPage(c, http.StatusOK, sharePageTmpl, view)
}

// SharedDownload 通过分享令牌下载.
//
//	@Summary	分享下载
//	@Tags		分享
//	@Produce	application/octet-stream
//	@Param		token	path		string	true	"分享令牌"
//	@Success	200		{file}		file
//	@Failure	404		{object}	ErrorResponse
//	@Failure	410		{object}	ErrorResponse
//	@Router		/api/shared/{token}/download [get]
func SharedDownload(c *gin.Context) {
	openShared(c, dispositionAttachment)
}

// SharedPreview 通过分享令牌预览.
//
//	@Summary	分享预览
//	@Tags		分享
//	@Produce	application/octet-stream
//	@Param		token	path		string	true	"分享令牌"
//	@Success	200		{file}		file
//	@Failure	404		{object}	ErrorResponse
//	@Failure	410		{object}	ErrorResponse
//	@Router		/api/shared/{token}/preview [get]
func SharedPreview(c *gin.Context) {
	openShared(c, dispositionInline)
}

func openShared(c *gin.Context, kind string) {
	ctx := c.Request.Context()

	fc, err := service.NewShareService(ctx).OpenShared(ctx, c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}

	serveContent(c, fc, kind)
}

// SharedThumbnail 通过分享令牌获取缩略图.
//
//	@Summary	分享缩略图
//	@Tags		分享
//	@Produce	image/jpeg
//	@Param		token	path		string	true	"分享令牌"
//	@Success	200		{file}		file
//	@Failure	404		{object}	ErrorResponse
//	@Failure	410		{object}	ErrorResponse
//	@Router		/api/shared/{token}/thumbnail [get]
func SharedThumbnail(c *gin.Context) {
	ctx := c.Request.Context()

	fc, err := service.NewThumbnailService(ctx).ForShare(ctx, c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}

	serveContent(c, fc, dispositionInline)
}

func renderShareError(c *gin.Context, err error) {
	switch errs.CodeOf(err) {
	case errs.CodeShareExpired:
		renderPage(c, http.StatusGone, expiredPageTmpl, nil)
	case errs.CodeNotFound:
		renderPage(c, http.StatusNotFound, notFoundPageTmpl, nil)
	default:
		_ = c.Error(err)
		renderPage(c, errs.HTTPStatus(err), errorPageTmpl, nil)
	}
}
