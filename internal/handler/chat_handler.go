// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"
	"yeti-ai-go/internal/model"
	"yeti-ai-go/internal/service"
	"yeti-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 来源校验交给 CORS 配置
		},
	}
)

// errorBody 是统一的错误响应结构。
func errorBody(code int, message string) gin.H {
	return gin.H{"code": code, "message": message, "data": nil}
}

// ChatHandler 负责处理聊天请求，包括 HTTP 与 WebSocket。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理一轮对话。请求体合法时总是返回 200，失败信息在响应信封中。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[ChatHandler] 请求体无效: %v", err)
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "无效的请求体: message 不能为空"))
		return
	}
	c.JSON(http.StatusOK, h.chatService.Process(c.Request.Context(), req))
}

// Handle 处理一个 WebSocket 连接：每个文本帧是一个 ChatRequest，每个回复是一个 ChatResponse。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, remote: %s", c.ClientIP())
	// 同一连接上的会话在首轮后沿用
	var sessionID string

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		var req model.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Message == "" {
			log.Warnf("收到无效的 WebSocket 消息: %s", string(message))
			if werr := conn.WriteJSON(errorBody(http.StatusBadRequest, "无效的消息: message 不能为空")); werr != nil {
				break
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		resp := h.chatService.Process(c.Request.Context(), req)
		sessionID = resp.SessionID
		if err := conn.WriteJSON(resp); err != nil {
			log.Warnf("向 WebSocket 写入响应失败: %v", err)
			break
		}
	}
}
