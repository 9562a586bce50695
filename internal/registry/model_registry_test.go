package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryContains(t *testing.T) {
	r := NewModelRegistry([]string{"sonar-pro", "gpt-4o"})

	assert.True(t, r.Contains("sonar-pro"))
	assert.False(t, r.Contains("unknown"))
}

func TestRegistrySkipsEmptyNames(t *testing.T) {
	r := NewModelRegistry([]string{"sonar-pro", "", "gpt-4o"})
	assert.Len(t, r.OpenAIModels(), 2)
}

func TestRegistryOpenAIModelsFormat(t *testing.T) {
	r := NewModelRegistry([]string{"sonar-pro"})

	models := r.OpenAIModels()
	require.Len(t, models, 1)
	assert.Equal(t, "sonar-pro", models[0]["id"])
	assert.Equal(t, "model", models[0]["object"])
	assert.Equal(t, "perplexity", models[0]["owned_by"])
	assert.NotZero(t, models[0]["created"])
}

func TestRegistrySetModelsReplaces(t *testing.T) {
	r := NewModelRegistry([]string{"sonar-pro"})
	r.SetModels([]string{"claude-3-opus"})

	assert.False(t, r.Contains("sonar-pro"))
	assert.True(t, r.Contains("claude-3-opus"))
}
