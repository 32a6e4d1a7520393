package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haha-dream/lanyard-bridge/internal/ports/in"
	"github.com/haha-dream/lanyard-bridge/pkg/zlog"
)

// AdminController 管理接口：查状态、维护群注册表、调日志级别
type AdminController struct {
	syncUseCase  in.PresenceSyncUseCase
	sessionState func() string
}

// NewAdminController 创建管理控制器
// sessionState 由传输会话提供，返回当前连接状态
func NewAdminController(syncUseCase in.PresenceSyncUseCase, sessionState func() string) *AdminController {
	return &AdminController{
		syncUseCase:  syncUseCase,
		sessionState: sessionState,
	}
}

// RegisterRoutes 注册路由
func (c *AdminController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", c.Health)
	r.GET("/status", c.Status)
	r.Any("/log/level", gin.WrapF(zlog.LevelHTTPHandler()))

	groups := r.Group("/groups")
	{
		groups.POST("", c.RegisterGroup)
		groups.DELETE("/:id", c.UnregisterGroup)
	}
}

// Health 健康检查
func (c *AdminController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status 当前运行状态
func (c *AdminController) Status(ctx *gin.Context) {
	info, err := c.syncUseCase.Status(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"session_state": c.sessionState(),
			"status":        info,
		},
	})
}

// RegisterGroupRequest 注册群请求
type RegisterGroupRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	Origin  string `json:"origin"` // 留空时投递目标取群号本身
}

// RegisterGroup 注册或刷新一个群
func (c *AdminController) RegisterGroup(ctx *gin.Context) {
	var req RegisterGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.syncUseCase.RegisterGroup(ctx.Request.Context(), req.GroupID, req.Origin); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 0})
}

// UnregisterGroup 取消一个群的注册
func (c *AdminController) UnregisterGroup(ctx *gin.Context) {
	groupID := ctx.Param("id")
	if groupID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "group id is required"})
		return
	}

	if err := c.syncUseCase.UnregisterGroup(ctx.Request.Context(), groupID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 0})
}
