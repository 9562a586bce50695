package perplexity

import (
	"bytes"
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"

	"github.com/router-for-me/PerplexityProxyAPI/internal/config"
	"github.com/router-for-me/PerplexityProxyAPI/internal/util"
)

const streamTimeout = 300 * time.Second

// askPayloadTemplate carries the static request parameters the web client
// sends to the ask endpoint. Per-turn fields (query, thread identity,
// model, query source) are filled in with sjson.
const askPayloadTemplate = `{"params":{"attachments":[],"language":"zh-CN","timezone":"Asia/Shanghai","search_focus":"internet","sources":["edgar","social","web","scholar"],"frontend_uuid":"","mode":"copilot","model_preference":"","is_related_query":false,"is_sponsored":false,"prompt_source":"user","query_source":"home","is_incognito":false,"time_from_first_type":1344.2,"local_search_enabled":false,"use_schematized_api":true,"send_back_text_in_streaming_api":false,"supported_block_use_cases":["answer_modes","media_items","knowledge_cards","inline_entity_cards","place_widgets","finance_widgets","prediction_market_widgets","sports_widgets","flight_status_widgets","news_widgets","shopping_widgets","jobs_widgets","search_result_widgets","clarification_responses","inline_images","inline_assets","placeholder_cards","diff_blocks","inline_knowledge_cards","entity_group_v2","refinement_filters","canvas_mode","maps_preview","answer_tabs","price_comparison_widgets","preserve_latex"],"client_coordinates":null,"mentions":[],"skip_search_enabled":true,"is_nav_suggestions_disabled":false,"always_search_override":false,"override_no_search":false,"should_ask_for_mcp_tool_confirmation":true,"supported_features":["browser_agent_permission_banner"],"version":"2.18"},"query_str":""}`

// QueryOptions carries the per-turn parameters of one upstream ask call,
// resolved by the conversation manager.
type QueryOptions struct {
	RequestID string
	Model     string
	ThreadID  string
	BackendID string
	IsNew     bool
}

// Client issues ask requests against the Perplexity web endpoint using an
// already-captured browser cookie. It performs no retries and no
// credential refresh.
type Client struct {
	apiURL     string
	cookie     string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates an upstream client from the Perplexity configuration.
func NewClient(cfg *config.PerplexityConfig) *Client {
	return &Client{
		apiURL:    cfg.APIURL,
		cookie:    cfg.Cookie,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: streamTimeout,
		},
	}
}

// BuildAskPayload assembles the JSON body for one ask call. A follow-up
// turn reuses the thread's frontend uuid, marks the query as related, and
// attaches the backend uuid learned from the previous response.
func BuildAskPayload(query string, opts QueryOptions) []byte {
	out := askPayloadTemplate
	out, _ = sjson.Set(out, "query_str", query)
	out, _ = sjson.Set(out, "params.frontend_uuid", opts.ThreadID)
	out, _ = sjson.Set(out, "params.model_preference", opts.Model)
	out, _ = sjson.Set(out, "params.is_related_query", !opts.IsNew)
	if opts.IsNew {
		out, _ = sjson.Set(out, "params.query_source", "home")
	} else {
		out, _ = sjson.Set(out, "params.query_source", "followup")
	}
	if opts.BackendID != "" {
		out, _ = sjson.Set(out, "params.backend_uuid", opts.BackendID)
	}
	return []byte(out)
}

// Ask POSTs the query to the ask endpoint and returns the raw streaming
// response. The caller owns the response body; cancelling ctx aborts the
// request and the body read.
func (c *Client) Ask(ctx context.Context, query string, opts QueryOptions) (*http.Response, error) {
	payload := BuildAskPayload(query, opts)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Origin", "https://www.perplexity.ai")
	httpReq.Header.Set("Referer", "https://www.perplexity.ai/")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		httpReq.Header.Set("Cookie", c.cookie)
	}
	if opts.RequestID != "" {
		httpReq.Header.Set("x-request-id", opts.RequestID)
	}

	log.Debugf("ask [%s]: thread %s, model %s, followup=%t",
		opts.RequestID, util.TruncateID(opts.ThreadID), opts.Model, !opts.IsNew)

	return c.httpClient.Do(httpReq)
}
