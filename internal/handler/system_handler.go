package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"yeti-ai-go/internal/config"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/planner"

	"github.com/gin-gonic/gin"
)

// Pinger 用于健康检查。
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 把普通函数适配为 Pinger。
type PingFunc func(ctx context.Context) error

// Ping 调用 f(ctx)。
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler 提供欢迎信息、模型目录与健康检查。
type SystemHandler struct {
	router   *planner.Router
	identity config.IdentityConfig
	redis    Pinger
}

// NewSystemHandler 创建一个新的 SystemHandler。redis 为 nil 表示未配置。
func NewSystemHandler(router *planner.Router, identity config.IdentityConfig, redis Pinger) *SystemHandler {
	return &SystemHandler{router: router, identity: identity, redis: redis}
}

// Root 返回欢迎信息。
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Welcome to %s Backend API", h.identity.Name),
		"version": h.identity.Version,
		"creator": h.identity.Creator,
		"status":  "active",
	})
}

// Models 返回以别名为键的模型目录。
func (h *SystemHandler) Models(c *gin.Context) {
	catalog := h.router.Catalog()
	out := make(map[string]model.ModelProfile, len(catalog))
	for _, p := range catalog {
		out[p.Alias] = p
	}
	c.JSON(http.StatusOK, out)
}

// Health 报告服务与 Redis 的状态。Redis 不可用时服务仍然是 ok（降级）。
func (h *SystemHandler) Health(c *gin.Context) {
	redisState := "disabled"
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			redisState = "unavailable"
		} else {
			redisState = "ok"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": redisState})
}
