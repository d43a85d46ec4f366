package handler

import (
	"fmt"
	"net/http"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/service"
	"yeti-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MemoryHandler 处理会话记忆的查询与清除。
type MemoryHandler struct {
	memoryService service.MemoryService
}

// NewMemoryHandler 创建一个新的 MemoryHandler。
func NewMemoryHandler(memoryService service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memoryService: memoryService}
}

// Get 返回会话的全部轮次，存储不可用时返回空列表。
func (h *MemoryHandler) Get(c *gin.Context) {
	sessionID := c.Param("sessionId")
	turns := h.memoryService.History(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, model.MemoryResponse{
		SessionID:     sessionID,
		Conversations: turns,
		TotalMessages: len(turns),
	})
}

// Clear 删除会话日志。
func (h *MemoryHandler) Clear(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := h.memoryService.Clear(c.Request.Context(), sessionID); err != nil {
		log.Errorf("[MemoryHandler] 清除会话失败, session: %s, error: %v", sessionID, err)
		c.JSON(http.StatusServiceUnavailable, errorBody(http.StatusServiceUnavailable, "Memory service unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Memory cleared for session %s", sessionID)})
}
