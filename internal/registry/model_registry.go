// Package registry maintains the set of model preferences exposed through
// the OpenAI-compatible models endpoint.
package registry

import (
	"sync"
	"time"

	"github.com/router-for-me/PerplexityProxyAPI/internal/constant"
)

// ModelInfo describes one selectable model preference.
type ModelInfo struct {
	ID      string
	OwnedBy string
	Created int64
}

// ModelRegistry is a concurrency-safe list of available models. It is
// rebuilt when the configuration reloads.
type ModelRegistry struct {
	mu     sync.RWMutex
	models []ModelInfo
}

// NewModelRegistry creates a registry from the configured model names.
func NewModelRegistry(names []string) *ModelRegistry {
	r := &ModelRegistry{}
	r.SetModels(names)
	return r
}

// SetModels replaces the registered model list.
func (r *ModelRegistry) SetModels(names []string) {
	now := time.Now().Unix()
	models := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		models = append(models, ModelInfo{
			ID:      name,
			OwnedBy: constant.Perplexity,
			Created: now,
		})
	}

	r.mu.Lock()
	r.models = models
	r.mu.Unlock()
}

// Contains reports whether the given model id is registered.
func (r *ModelRegistry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// OpenAIModels returns the registered models in OpenAI list-entry format.
func (r *ModelRegistry) OpenAIModels() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]map[string]any, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, map[string]any{
			"id":       m.ID,
			"object":   "model",
			"created":  m.Created,
			"owned_by": m.OwnedBy,
		})
	}
	return out
}
