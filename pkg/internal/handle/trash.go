package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/service"
)

// ListTrash 回收站中的文件与文件夹.
//
//	@Summary	回收站列表
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.TrashListResponse
//	@Router		/api/trash [get]
func ListTrash(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewTrashService(ctx).List(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// EmptyTrash 永久删除回收站中的全部内容.
//
//	@Summary	清空回收站
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.EmptyTrashResult
//	@Router		/api/trash [delete]
func EmptyTrash(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewTrashService(ctx).Empty(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// PurgeFile 永久删除回收站中的文件.
//
//	@Summary	永久删除文件
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{object}	MessageResponse
//	@Router		/api/trash/files/{id} [delete]
func PurgeFile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if err := service.NewTrashService(ctx).Purge(ctx, uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "file permanently deleted"})
}

// RestoreFile 从回收站恢复文件，字节缺失时返回 SOURCE_MISSING.
//
//	@Summary	恢复文件
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件 ID"
//	@Success	200	{object}	model.File
//	@Failure	400	{object}	ErrorResponse
//	@Router		/api/trash/files/{id}/restore [post]
func RestoreFile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	f, err := service.NewTrashService(ctx).Restore(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file restored", "file": f})
}

// PurgeFolder 永久删除回收站中的文件夹及其全部内容.
//
//	@Summary	永久删除文件夹
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件夹 ID"
//	@Success	200	{object}	types.PurgeFolderResult
//	@Router		/api/trash/folders/{id} [delete]
func PurgeFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFolderService(ctx).PurgeFolder(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// RestoreFolder 恢复文件夹，字节缺失的文件被清除并计入 missingFiles.
//
//	@Summary	恢复文件夹
//	@Tags		回收站
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件夹 ID"
//	@Success	200	{object}	types.RestoreFolderResult
//	@Router		/api/trash/folders/{id}/restore [post]
func RestoreFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFolderService(ctx).RestoreFolder(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
