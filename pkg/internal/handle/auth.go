package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// Register 注册账户.
//
//	@Summary	注册
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.RegisterRequest	true	"注册信息"
//	@Success	201		{object}	types.AuthResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Router		/api/auth/register [post]
func Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewAuthService(ctx).Register(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login 登录并签发令牌.
//
//	@Summary	登录
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.LoginRequest	true	"登录信息"
//	@Success	200		{object}	types.AuthResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Router		/api/auth/login [post]
func Login(c *gin.Context) {
	var req types.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewAuthService(ctx).Login(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout 记录登出，令牌由客户端丢弃.
//
//	@Summary	登出
//	@Tags		认证
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	MessageResponse
//	@Router		/api/auth/logout [post]
func Logout(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	service.NewAuthService(ctx).Logout(ctx, uid)

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Profile 当前用户信息与用量.
//
//	@Summary	用户信息
//	@Tags		认证
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	types.UserSummary
//	@Router		/api/user/profile [get]
func Profile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	p, err := service.NewAuthService(ctx).Profile(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Activity 最近的活动记录.
//
//	@Summary	活动记录
//	@Tags		认证
//	@Produce	json
//	@Security	BearerAuth
//	@Param		limit	query		int	false	"条数，默认 50"
//	@Success	200		{object}	map[string][]model.ActivityLog
//	@Router		/api/activity [get]
func Activity(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	ctx := c.Request.Context()

	logs, err := service.NewActivityService(ctx).Recent(ctx, uid, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": logs})
}
