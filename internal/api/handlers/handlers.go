// Package handlers bundles the state shared by all API handler groups and
// the error envelope returned by every endpoint.
package handlers

import (
	"sync"

	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
	"github.com/router-for-me/PerplexityProxyAPI/internal/conversation"
	"github.com/router-for-me/PerplexityProxyAPI/internal/provider/perplexity"
	"github.com/router-for-me/PerplexityProxyAPI/internal/registry"
	"github.com/router-for-me/PerplexityProxyAPI/internal/usage"
)

// ErrorResponse is the OpenAI-style error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message and machine-readable type.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// BaseAPIHandler holds the shared dependencies of all handler groups. The
// upstream client and model registry are rebuilt when the configuration
// reloads; the conversation manager and usage recorder live for the whole
// process.
type BaseAPIHandler struct {
	Conversations *conversation.Manager
	Usage         *usage.Statistics
	Models        *registry.ModelRegistry

	mu     sync.RWMutex
	cfg    *config.Config
	client *perplexity.Client
}

// NewBaseAPIHandler creates the shared handler state from the configuration.
func NewBaseAPIHandler(cfg *config.Config, conversations *conversation.Manager, stats *usage.Statistics) *BaseAPIHandler {
	return &BaseAPIHandler{
		Conversations: conversations,
		Usage:         stats,
		Models:        registry.NewModelRegistry(cfg.Perplexity.Models),
		cfg:           cfg,
		client:        perplexity.NewClient(&cfg.Perplexity),
	}
}

// Config returns the current configuration.
func (h *BaseAPIHandler) Config() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Client returns the current upstream client.
func (h *BaseAPIHandler) Client() *perplexity.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

// UpdateConfig swaps in a reloaded configuration, rebuilding the upstream
// client and refreshing the model registry.
func (h *BaseAPIHandler) UpdateConfig(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.client = perplexity.NewClient(&cfg.Perplexity)
	h.mu.Unlock()

	h.Models.SetModels(cfg.Perplexity.Models)
}
