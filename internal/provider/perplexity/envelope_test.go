package perplexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEnvelopePlainText(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"text key", `{"text": "hello"}`, "hello"},
		{"answer key", `{"answer": "Hi"}`, "Hi"},
		{"answer wins over text", `{"answer": "a", "text": "t"}`, "a"},
		{"neither key is inert", `{"status": "pending"}`, ""},
		{"not json at all", `garbage`, ""},
		{"empty object", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeEnvelope([]byte(tt.payload)))
		})
	}
}

func TestDecodeEnvelopeObjectShape(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			"nested answer object",
			`{"answer": "{\"answer\": \"inner\"}"}`,
			"inner",
		},
		{
			"chunks concatenated under text key",
			`{"text": "{\"chunks\": [\"Hel\", \"lo\"]}"}`,
			"Hello",
		},
		{
			"chunks ignored under answer key",
			`{"answer": "{\"chunks\": [\"Hel\", \"lo\"]}"}`,
			"",
		},
		{
			"object without known fields",
			`{"text": "{\"other\": 1}"}`,
			"",
		},
		{
			"malformed object falls back to literal",
			`{"answer": "{not json"}`,
			"{not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeEnvelope([]byte(tt.payload)))
		})
	}
}

func TestDecodeEnvelopeSearchWebStep(t *testing.T) {
	payload := `{"answer":"[{\"step_type\":\"SEARCH_WEB\",\"content\":{\"queries\":[{\"query\":\"cats\"}]}}]"}`
	assert.Equal(t, "> 🔍 Searching: cats\n\n", DecodeEnvelope([]byte(payload)))
}

func TestDecodeEnvelopeSearchWebJoinsQueries(t *testing.T) {
	payload := `{"answer":"[{\"step_type\":\"SEARCH_WEB\",\"content\":{\"queries\":[{\"query\":\"cats\"},{\"query\":\"dogs\"}]}}]"}`
	assert.Equal(t, "> 🔍 Searching: cats, dogs\n\n", DecodeEnvelope([]byte(payload)))
}

func TestDecodeEnvelopeSearchResultsStep(t *testing.T) {
	payload := `{"answer":"[{\"step_type\":\"SEARCH_RESULTS\",\"content\":{\"web_results\":[{},{},{}]}}]"}`
	assert.Equal(t, "> 📚 Found 3 sources\n\n", DecodeEnvelope([]byte(payload)))

	empty := `{"answer":"[{\"step_type\":\"SEARCH_RESULTS\",\"content\":{\"web_results\":[]}}]"}`
	assert.Equal(t, "", DecodeEnvelope([]byte(empty)))
}

func TestDecodeEnvelopeFinalStep(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			"nested json answer",
			`{"answer":"[{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"{\\\"answer\\\": \\\"done\\\"}\"}}]"}`,
			"done",
		},
		{
			"invalid json falls back to raw string",
			`{"answer":"[{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"plain answer\"}}]"}`,
			"plain answer",
		},
		{
			"valid json object without answer contributes nothing",
			`{"answer":"[{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"{\\\"other\\\": 1}\"}}]"}`,
			"",
		},
		{
			"valid non-object json used verbatim",
			`{"answer":"[{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"123\"}}]"}`,
			"123",
		},
		{
			"missing answer contributes nothing",
			`{"answer":"[{\"step_type\":\"FINAL\",\"content\":{}}]"}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeEnvelope([]byte(tt.payload)))
		})
	}
}

func TestDecodeEnvelopeStepsConcatenateInOrder(t *testing.T) {
	payload := `{"answer":"[{\"step_type\":\"SEARCH_WEB\",\"content\":{\"queries\":[{\"query\":\"go\"}]}},{\"step_type\":\"SEARCH_RESULTS\",\"content\":{\"web_results\":[{}]}},{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"Answer.\"}}]"}`
	want := "> 🔍 Searching: go\n\n> 📚 Found 1 sources\n\nAnswer."
	assert.Equal(t, want, DecodeEnvelope([]byte(payload)))
}

func TestDecodeEnvelopeUnknownStepTypeIgnored(t *testing.T) {
	payload := `{"answer":"[{\"step_type\":\"PLANNING\",\"content\":{\"answer\":\"hidden\"}},{\"step_type\":\"FINAL\",\"content\":{\"answer\":\"shown\"}}]"}`
	assert.Equal(t, "shown", DecodeEnvelope([]byte(payload)))
}

func TestDecodeEnvelopeMalformedStepsFallBackToLiteral(t *testing.T) {
	payload := `{"answer": "[not valid json"}`
	assert.Equal(t, "[not valid json", DecodeEnvelope([]byte(payload)))
}

func TestDecodeEnvelopeIsStateless(t *testing.T) {
	payload := []byte(`{"text": "hello"}`)
	assert.Equal(t, "hello", DecodeEnvelope(payload))
	assert.Equal(t, "hello", DecodeEnvelope(payload))
}
