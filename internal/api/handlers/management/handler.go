// Package management exposes the administrative endpoints for conversation
// continuity state and usage counters.
package management

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers"
	"github.com/router-for-me/PerplexityProxyAPI/internal/constant"
)

// Handler contains the management endpoint handlers.
type Handler struct {
	*handlers.BaseAPIHandler
}

// NewHandler creates a management handler group.
func NewHandler(base *handlers.BaseAPIHandler) *Handler {
	return &Handler{BaseAPIHandler: base}
}

// GetConversations handles GET /v1/conversations.
func (h *Handler) GetConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"stats":  h.Conversations.Stats(),
	})
}

// ResetConversation handles POST /v1/conversations/reset. The body may
// name a conversation_id; omitting it resets the default conversation.
func (h *Handler) ResetConversation(c *gin.Context) {
	conversationID := constant.DefaultConversationID
	if rawJSON, err := c.GetRawData(); err == nil {
		if id := gjson.GetBytes(rawJSON, "conversation_id").String(); id != "" {
			conversationID = id
		}
	}

	h.Conversations.Reset(conversationID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("conversation %q has been reset", conversationID),
	})
}

// ResetAllConversations handles POST /v1/conversations/reset-all.
func (h *Handler) ResetAllConversations(c *gin.Context) {
	removed := h.Conversations.ResetAll()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("reset %d conversations", removed),
	})
}

// GetUsage handles GET /v1/usage.
func (h *Handler) GetUsage(c *gin.Context) {
	snapshot, err := h.Usage.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: fmt.Sprintf("Failed to read usage statistics: %v", err),
				Type:    "server_error",
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"requests": snapshot,
	})
}
