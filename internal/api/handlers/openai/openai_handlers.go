// Package openai provides HTTP handlers for the OpenAI-compatible API
// endpoints. Chat completions are translated to Perplexity ask calls and
// the upstream answer stream is converted back into chat.completion.chunk
// frames, so existing OpenAI client tooling works unmodified.
package openai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/router-for-me/PerplexityProxyAPI/internal/api/handlers"
	"github.com/router-for-me/PerplexityProxyAPI/internal/provider/perplexity"
	"github.com/router-for-me/PerplexityProxyAPI/internal/util"
)

// OpenAIAPIHandler contains the handlers for OpenAI API endpoints.
type OpenAIAPIHandler struct {
	*handlers.BaseAPIHandler
}

// NewOpenAIAPIHandler creates a new OpenAI API handler group.
func NewOpenAIAPIHandler(base *handlers.BaseAPIHandler) *OpenAIAPIHandler {
	return &OpenAIAPIHandler{BaseAPIHandler: base}
}

// OpenAIModels handles the /v1/models endpoint.
func (h *OpenAIAPIHandler) OpenAIModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   h.Models.OpenAIModels(),
	})
}

// ChatCompletions handles the /v1/chat/completions endpoint. The last user
// message becomes the upstream query; conversation identity is resolved
// from the request body so stateless clients keep thread continuity.
func (h *OpenAIAPIHandler) ChatCompletions(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: fmt.Sprintf("Invalid request: %v", err),
				Type:    "invalid_request_error",
			},
		})
		return
	}

	messages := gjson.GetBytes(rawJSON, "messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "Messages cannot be empty",
				Type:    "invalid_request_error",
			},
		})
		return
	}

	query := lastUserMessage(messages)
	if query == "" {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "No user message found",
				Type:    "invalid_request_error",
			},
		})
		return
	}

	cfg := h.Config()
	model := gjson.GetBytes(rawJSON, "model").String()
	if model == "" {
		model = cfg.Perplexity.DefaultModel
	}

	conversationID := resolveConversationID(rawJSON)
	resolution := h.Conversations.Resolve(conversationID)
	requestID := perplexity.NewRequestID()

	log.Infof("conversation %q: turn %d, thread %s, new=%t [%s]",
		conversationID, resolution.TurnCount, util.TruncateID(resolution.ThreadID), resolution.IsNew, requestID)
	h.Usage.RecordRequest(model)

	opts := perplexity.QueryOptions{
		RequestID: requestID,
		Model:     model,
		ThreadID:  resolution.ThreadID,
		BackendID: resolution.BackendID,
		IsNew:     resolution.IsNew,
	}

	if gjson.GetBytes(rawJSON, "stream").Type == gjson.True {
		h.handleStreamingResponse(c, conversationID, query, opts)
	} else {
		h.handleNonStreamingResponse(c, conversationID, query, opts)
	}
}

// resolveConversationID picks the conversation identity from the request
// body: an explicit conversation_id wins, then OpenAI's standard user
// field, then the default conversation.
func resolveConversationID(rawJSON []byte) string {
	if id := gjson.GetBytes(rawJSON, "conversation_id").String(); id != "" {
		return id
	}
	return gjson.GetBytes(rawJSON, "user").String()
}

// lastUserMessage extracts the content of the most recent user message.
// Content may be a plain string or an array of typed parts.
func lastUserMessage(messages gjson.Result) string {
	items := messages.Array()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Get("role").String() != "user" {
			continue
		}
		content := items[i].Get("content")
		if content.Type == gjson.String {
			return content.String()
		}
		if content.IsArray() {
			var b strings.Builder
			content.ForEach(func(_, part gjson.Result) bool {
				if part.Get("type").String() == "text" {
					b.WriteString(part.Get("text").String())
				}
				return true
			})
			return b.String()
		}
		return ""
	}
	return ""
}

// handleStreamingResponse streams the translated upstream answer as
// Server-Sent Events. The outbound stream always ends with a stop frame
// and the [DONE] sentinel, whatever the upstream does.
func (h *OpenAIAPIHandler) handleStreamingResponse(c *gin.Context, conversationID, query string, opts perplexity.QueryOptions) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "Streaming not supported",
				Type:    "server_error",
			},
		})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.Client().Ask(ctx, query, opts)
	if err != nil {
		log.Errorf("upstream request failed [%s]: %v", opts.RequestID, err)
		writeFrame(c, flusher, perplexity.ContentChunk(opts.RequestID, opts.Model, fmt.Sprintf("[Error: %v]", err)))
		writeFrame(c, flusher, perplexity.StopChunk(opts.RequestID, opts.Model))
		_, _ = fmt.Fprint(c.Writer, perplexity.DoneFrame)
		flusher.Flush()
		return
	}

	translator := perplexity.NewTranslator(opts.RequestID, opts.Model)
	chunks := translator.Stream(ctx, resp, func(backendID string) {
		h.Conversations.UpdateBackendID(conversationID, backendID)
	})

	for {
		select {
		case <-ctx.Done():
			log.Debugf("client disconnected [%s]: %v", opts.RequestID, ctx.Err())
			return
		case chunk, okStream := <-chunks:
			if !okStream {
				_, _ = fmt.Fprint(c.Writer, perplexity.DoneFrame)
				flusher.Flush()
				return
			}
			writeFrame(c, flusher, chunk)
		}
	}
}

// handleNonStreamingResponse aggregates the whole translated stream into a
// single chat.completion object.
func (h *OpenAIAPIHandler) handleNonStreamingResponse(c *gin.Context, conversationID, query string, opts perplexity.QueryOptions) {
	ctx := c.Request.Context()
	resp, err := h.Client().Ask(ctx, query, opts)
	if err != nil {
		log.Errorf("upstream request failed [%s]: %v", opts.RequestID, err)
		c.JSON(http.StatusBadGateway, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: fmt.Sprintf("Upstream request failed: %v", err),
				Type:    "upstream_error",
			},
		})
		return
	}

	translator := perplexity.NewTranslator(opts.RequestID, opts.Model)
	chunks := translator.Stream(ctx, resp, func(backendID string) {
		h.Conversations.UpdateBackendID(conversationID, backendID)
	})

	var content strings.Builder
	for chunk := range chunks {
		if delta := gjson.GetBytes(chunk, "choices.0.delta.content"); delta.Exists() {
			content.WriteString(delta.String())
		}
	}

	c.Data(http.StatusOK, "application/json", perplexity.Completion(opts.RequestID, opts.Model, content.String()))
}

func writeFrame(c *gin.Context, flusher http.Flusher, payload []byte) {
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	flusher.Flush()
}
