package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/service"
	"yeti-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AgentHandler 处理浏览代理相关的请求。
type AgentHandler struct {
	browseService  service.BrowseService
	archiveService service.ArchiveService
}

// NewAgentHandler 创建一个新的 AgentHandler。
func NewAgentHandler(browseService service.BrowseService, archiveService service.ArchiveService) *AgentHandler {
	return &AgentHandler{browseService: browseService, archiveService: archiveService}
}

// Status 返回代理状态。目前没有真实的任务追踪，总是 ready。
func (h *AgentHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, model.AgentStatus{
		Status:      "active",
		CurrentTask: "ready",
		SessionID:   c.Param("sessionId"),
		Timestamp:   time.Now().UTC(),
	})
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Browse 同步打开页面并返回截图与正文。浏览失败时仍返回 200 与错误变体。
func (h *AgentHandler) Browse(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "url 参数不能为空"))
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	req := model.BrowseRequest{
		URL:       url,
		SessionID: sessionID,
		Headless:  queryBool(c, "headless", true),
		Archive:   queryBool(c, "archive", false),
	}
	log.Infof("[AgentHandler] 收到浏览请求, url: %s, session: %s, headless: %v", url, sessionID, req.Headless)
	c.JSON(http.StatusOK, h.browseService.Browse(c.Request.Context(), req))
}

// EnqueueTask 提交一个异步浏览归档任务。
func (h *AgentHandler) EnqueueTask(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "url 参数不能为空"))
		return
	}
	status, err := h.archiveService.Enqueue(c.Request.Context(), url, c.Query("session_id"), queryBool(c, "headless", true))
	if err != nil {
		h.writeArchiveError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": status.TaskID, "status": status.Status})
}

// TaskStatus 查询异步浏览任务的状态。
func (h *AgentHandler) TaskStatus(c *gin.Context) {
	status, err := h.archiveService.Status(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.writeArchiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SearchPages 检索已归档的页面。
func (h *AgentHandler) SearchPages(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "无效的查询参数"))
		return
	}
	hits, err := h.archiveService.SearchPages(c.Request.Context(), query)
	if err != nil {
		h.writeArchiveError(c, err)
		return
	}
	log.Infof("[AgentHandler] 归档检索成功, query: '%s', 返回 %d 条结果", query, len(hits))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": hits})
}

func (h *AgentHandler) writeArchiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, errorBody(http.StatusNotFound, "任务不存在"))
	default:
		log.Errorf("[AgentHandler] 页面归档不可用: %v", err)
		c.JSON(http.StatusServiceUnavailable, errorBody(http.StatusServiceUnavailable, "页面归档服务不可用"))
	}
}
