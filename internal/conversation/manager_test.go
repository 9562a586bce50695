package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesSession(t *testing.T) {
	m := NewManager(50, 10)

	res := m.Resolve("alice")
	assert.True(t, res.IsNew)
	assert.Equal(t, 1, res.TurnCount)
	assert.NotEmpty(t, res.ThreadID)
	assert.Empty(t, res.BackendID)
}

func TestResolveEmptyIDUsesDefault(t *testing.T) {
	m := NewManager(50, 10)

	first := m.Resolve("")
	second := m.Resolve("default")
	assert.False(t, second.IsNew)
	assert.Equal(t, first.ThreadID, second.ThreadID)
}

func TestResolveTurnCountingAndRotation(t *testing.T) {
	m := NewManager(50, 10)

	first := m.Resolve("default")
	threadID := first.ThreadID
	assert.Equal(t, 1, first.TurnCount)

	for turn := 2; turn <= 50; turn++ {
		res := m.Resolve("default")
		assert.False(t, res.IsNew)
		assert.Equal(t, turn, res.TurnCount)
		assert.Equal(t, threadID, res.ThreadID)
	}

	// The 51st call crosses the threshold and rotates the thread. The
	// rotated turn reports count 0 while a fresh session starts at 1.
	rotated := m.Resolve("default")
	assert.True(t, rotated.IsNew)
	assert.Equal(t, 0, rotated.TurnCount)
	assert.NotEqual(t, threadID, rotated.ThreadID)
	assert.Empty(t, rotated.BackendID)
}

func TestRotationClearsBackendID(t *testing.T) {
	m := NewManager(2, 10)

	m.Resolve("x")
	m.UpdateBackendID("x", "backend-1")
	res := m.Resolve("x")
	require.False(t, res.IsNew)
	assert.Equal(t, "backend-1", res.BackendID)

	rotated := m.Resolve("x")
	assert.True(t, rotated.IsNew)
	assert.Empty(t, rotated.BackendID)
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	m := NewManager(50, 10)

	for i := 0; i < 10; i++ {
		m.Resolve(fmt.Sprintf("conv-%d", i))
	}
	// conv-0 becomes most recently used; conv-1 is now the oldest.
	m.Resolve("conv-0")

	m.Resolve("conv-10")

	stats := m.Stats()
	assert.Equal(t, 10, stats.ActiveConversations)
	assert.Contains(t, stats.Conversations, "conv-0")
	assert.Contains(t, stats.Conversations, "conv-10")
	assert.NotContains(t, stats.Conversations, "conv-1")
}

func TestActiveCountNeverExceedsCapacity(t *testing.T) {
	m := NewManager(50, 10)

	for i := 0; i < 25; i++ {
		m.Resolve(fmt.Sprintf("conv-%d", i))
		assert.LessOrEqual(t, m.ActiveCount(), 10)
	}
}

func TestResetThenResolveStartsFresh(t *testing.T) {
	m := NewManager(50, 10)

	first := m.Resolve("bob")
	m.Resolve("bob")
	m.Reset("bob")

	res := m.Resolve("bob")
	assert.True(t, res.IsNew)
	assert.Equal(t, 1, res.TurnCount)
	assert.NotEqual(t, first.ThreadID, res.ThreadID)
}

func TestResetIsIdempotent(t *testing.T) {
	m := NewManager(50, 10)
	m.Reset("never-seen")
	m.Reset("never-seen")
	assert.Equal(t, 0, m.ActiveCount())
}

func TestUpdateBackendIDForMissingSessionIsNoop(t *testing.T) {
	m := NewManager(50, 10)
	m.UpdateBackendID("ghost", "backend-1")
	assert.Equal(t, 0, m.ActiveCount())
}

func TestResetAll(t *testing.T) {
	m := NewManager(50, 10)
	m.Resolve("a")
	m.Resolve("b")

	assert.Equal(t, 2, m.ResetAll())
	assert.Equal(t, 0, m.ActiveCount())
	assert.Equal(t, 0, m.ResetAll())
}

func TestStatsSummaries(t *testing.T) {
	m := NewManager(50, 10)
	m.Resolve("a")
	m.UpdateBackendID("a", "backend-1")

	stats := m.Stats()
	assert.Equal(t, 10, stats.MaxConversations)
	assert.Equal(t, 50, stats.MaxTurnsPerConversation)

	summary, ok := stats.Conversations["a"]
	require.True(t, ok)
	assert.Equal(t, 1, summary.TurnCount)
	assert.True(t, summary.HasBackendID)
	assert.Contains(t, summary.ThreadID, "...")
}

func TestResolveConcurrentSameConversation(t *testing.T) {
	m := NewManager(1000, 10)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Resolve("shared")
		}()
	}
	wg.Wait()

	stats := m.Stats()
	assert.Equal(t, 100, stats.Conversations["shared"].TurnCount)
}
