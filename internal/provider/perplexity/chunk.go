package perplexity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

// Templates for the OpenAI-compatible wire objects. Dynamic fields are
// filled with sjson so the emitted JSON always carries the full schema.
const (
	chunkTemplate = `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{},"finish_reason":null}]}`

	completionTemplate = `{"id":"","object":"chat.completion","created":0,"model":"","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`
)

// DoneFrame is the terminal sentinel closing every outbound stream.
const DoneFrame = "data: [DONE]\n\n"

// NewRequestID generates an identifier shared by all frames of one response.
func NewRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ContentChunk builds a streaming frame carrying a text delta.
func ContentChunk(id, model, content string) []byte {
	out := baseChunk(id, model)
	out, _ = sjson.Set(out, "choices.0.delta.content", content)
	return []byte(out)
}

// StopChunk builds the final empty-delta frame with finish_reason "stop".
func StopChunk(id, model string) []byte {
	out := baseChunk(id, model)
	out, _ = sjson.Set(out, "choices.0.delta.content", "")
	out, _ = sjson.Set(out, "choices.0.finish_reason", "stop")
	return []byte(out)
}

// Completion builds a non-streaming chat.completion response.
func Completion(id, model, content string) []byte {
	out := completionTemplate
	out, _ = sjson.Set(out, "id", id)
	out, _ = sjson.Set(out, "created", time.Now().Unix())
	out, _ = sjson.Set(out, "model", model)
	out, _ = sjson.Set(out, "choices.0.message.content", content)
	return []byte(out)
}

func baseChunk(id, model string) string {
	out := chunkTemplate
	out, _ = sjson.Set(out, "id", id)
	out, _ = sjson.Set(out, "created", time.Now().Unix())
	out, _ = sjson.Set(out, "model", model)
	return out
}
