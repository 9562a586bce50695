// Package perplexity implements the upstream Perplexity web client and the
// translation of its SSE answer stream into OpenAI chat-completion chunks.
//
// The upstream wire format is undocumented and shape-shifts between
// releases: each stream event is an "envelope" carrying the cumulative
// answer text so far, under either an "answer" or a "text" key, whose
// value may be a plain string, a JSON object, or a JSON-encoded array of
// step objects. Decoding is strictly best effort; a malformed envelope
// degrades to literal text and never aborts a stream.
package perplexity

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Step types observed in array-shaped envelopes. Anything else is ignored.
const (
	stepSearchWeb     = "SEARCH_WEB"
	stepSearchResults = "SEARCH_RESULTS"
	stepFinal         = "FINAL"
)

// envelopeShape classifies the raw value carried by an envelope.
type envelopeShape int

const (
	// shapeLiteral covers plain text and every unrecognized form.
	shapeLiteral envelopeShape = iota
	// shapeSteps is a JSON array of step objects.
	shapeSteps
	// shapeObject is a JSON object carrying "answer" or "chunks".
	shapeObject
)

func classifyShape(trimmed string) envelopeShape {
	switch {
	case strings.HasPrefix(trimmed, "["):
		return shapeSteps
	case strings.HasPrefix(trimmed, "{"):
		return shapeObject
	default:
		return shapeLiteral
	}
}

// DecodeEnvelope extracts the cumulative answer text carried by one
// upstream stream event. Events are snapshots, not deltas: each carries
// the full text so far. An event with no decodable text yields "".
func DecodeEnvelope(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	root := gjson.ParseBytes(payload)

	value := root.Get("answer")
	fromText := false
	if !value.Exists() {
		value = root.Get("text")
		fromText = true
	}
	if !value.Exists() {
		return ""
	}

	raw := value.String()
	trimmed := strings.TrimSpace(raw)

	switch classifyShape(trimmed) {
	case shapeSteps:
		return decodeSteps(trimmed, raw)
	case shapeObject:
		return decodeObject(trimmed, raw, fromText)
	default:
		return raw
	}
}

// decodeSteps renders an array of step objects in order, concatenating the
// textual contribution of each. An unparseable array falls back to the raw
// value verbatim.
func decodeSteps(trimmed, raw string) string {
	if !gjson.Valid(trimmed) {
		return raw
	}

	var b strings.Builder
	gjson.Parse(trimmed).ForEach(func(_, step gjson.Result) bool {
		content := step.Get("content")
		switch step.Get("step_type").String() {
		case stepSearchWeb:
			queries := make([]string, 0, 4)
			content.Get("queries").ForEach(func(_, q gjson.Result) bool {
				queries = append(queries, q.Get("query").String())
				return true
			})
			fmt.Fprintf(&b, "> 🔍 Searching: %s\n\n", strings.Join(queries, ", "))
		case stepSearchResults:
			if n := content.Get("web_results.#").Int(); n > 0 {
				fmt.Fprintf(&b, "> 📚 Found %d sources\n\n", n)
			}
		case stepFinal:
			b.WriteString(decodeFinalAnswer(content.Get("answer")))
		}
		return true
	})
	return b.String()
}

// decodeFinalAnswer unwraps the FINAL step's answer value. String answers
// are sometimes JSON objects with a nested "answer" field; a string that
// fails to parse is used verbatim, and a parseable object without the
// nested field contributes nothing.
func decodeFinalAnswer(answer gjson.Result) string {
	if !answer.Exists() {
		return ""
	}
	if answer.Type != gjson.String {
		// Non-string answers are passed through in their JSON form.
		return answer.String()
	}

	s := answer.String()
	if gjson.Valid(s) {
		if parsed := gjson.Parse(s); parsed.IsObject() {
			if nested := parsed.Get("answer"); nested.Exists() {
				return nested.String()
			}
			return ""
		}
	}
	return s
}

// decodeObject handles object-shaped envelopes: an "answer" field wins;
// a "chunks" array (seen only under the "text" key) is concatenated in
// order. An unparseable object falls back to the raw value verbatim.
func decodeObject(trimmed, raw string, fromText bool) string {
	if !gjson.Valid(trimmed) {
		return raw
	}

	obj := gjson.Parse(trimmed)
	if answer := obj.Get("answer"); answer.Exists() {
		return answer.String()
	}
	if fromText {
		if chunks := obj.Get("chunks"); chunks.IsArray() {
			var b strings.Builder
			chunks.ForEach(func(_, chunk gjson.Result) bool {
				b.WriteString(chunk.String())
				return true
			})
			return b.String()
		}
	}
	return ""
}
