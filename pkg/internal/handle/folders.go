package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// CreateFolder 创建文件夹.
//
//	@Summary	创建文件夹
//	@Tags		文件夹
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		types.CreateFolderRequest	true	"名称与父文件夹"
//	@Success	201		{object}	model.Folder
//	@Router		/api/folders [post]
func CreateFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.CreateFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	folder, err := service.NewFolderService(ctx).Create(ctx, uid, req.Name, req.ParentID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, folder)
}

// ListAllFolders 所有未删除的文件夹，按名称排序.
//
//	@Summary	文件夹列表
//	@Tags		文件夹
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string][]model.Folder
//	@Router		/api/folders/all [get]
func ListAllFolders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	folders, err := service.NewFolderService(ctx).ListAll(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// RenameFolder 重命名文件夹并更新子孙路径.
//
//	@Summary	重命名文件夹
//	@Tags		文件夹
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"文件夹 ID"
//	@Param		body	body		types.RenameRequest	true	"新名称"
//	@Success	200		{object}	model.Folder
//	@Router		/api/folders/{id}/rename [post]
func RenameFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.RenameRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	folder, err := service.NewFolderService(ctx).Rename(ctx, uid, c.Param("id"), req.NewName)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "folder renamed", "folder": folder})
}

// MoveFolder 移动文件夹，parentId 为空移到根.
//
//	@Summary	移动文件夹
//	@Tags		文件夹
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"文件夹 ID"
//	@Param		body	body		types.MoveFolderRequest	true	"新父文件夹"
//	@Success	200		{object}	model.Folder
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/folders/{id}/move [post]
func MoveFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req types.MoveFolderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	folder, err := service.NewFolderService(ctx).Move(ctx, uid, c.Param("id"), req.ParentID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "folder moved", "folder": folder})
}

// TrashFolder 文件夹及其内容移入回收站.
//
//	@Summary	删除文件夹（移入回收站）
//	@Tags		文件夹
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"文件夹 ID"
//	@Success	200	{object}	types.TrashFolderResult
//	@Router		/api/folders/{id} [delete]
func TrashFolder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	res, err := service.NewFolderService(ctx).TrashFolder(ctx, uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
