// Package constant defines identifiers used throughout the Perplexity Proxy API.
package constant

const (
	// Perplexity is the upstream provider identifier.
	Perplexity = "perplexity"

	// OpenAI identifies the OpenAI-compatible inbound API format.
	OpenAI = "openai"

	// DefaultConversationID is used when a request carries no conversation identity.
	DefaultConversationID = "default"
)
