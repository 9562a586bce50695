package perplexity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	ssePrefix   = "data: "
	sseSentinel = "[DONE]"

	scannerBufferSize = 1024 * 1024
)

// Translator converts one upstream ask response into OpenAI
// chat.completion.chunk payloads. A translator serves exactly one request
// and owns the end-of-stream and error-path framing: whatever the upstream
// does, the emitted sequence ends with a stop frame, and failures surface
// as bracketed content markers rather than errors.
type Translator struct {
	requestID string
	model     string
}

// NewTranslator creates a translator for one outbound response.
func NewTranslator(requestID, model string) *Translator {
	return &Translator{requestID: requestID, model: model}
}

// Stream consumes resp and emits encoded chunk payloads on the returned
// channel. The channel closes after the stop frame on every path; the
// caller writes each payload as an SSE frame and appends the [DONE]
// sentinel. onBackendID is invoked at most once, with the backend uuid the
// upstream reports for this thread. The response body is closed on every
// exit path; cancelling ctx aborts the upstream read.
func (t *Translator) Stream(ctx context.Context, resp *http.Response, onBackendID func(string)) <-chan []byte {
	out := make(chan []byte, 8)

	go func() {
		defer close(out)
		defer func() {
			_ = resp.Body.Close()
		}()

		// Abandon a send when the consumer is gone.
		emit := func(payload []byte) bool {
			select {
			case out <- payload:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			log.Errorf("upstream error %d: %s", resp.StatusCode, preview)
			emit(ContentChunk(t.requestID, t.model,
				fmt.Sprintf("[Error: Upstream %d - cookie may have expired, please re-import it]", resp.StatusCode)))
			emit(StopChunk(t.requestID, t.model))
			return
		}

		tracker := &DeltaTracker{}
		backendReported := false

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, ssePrefix) {
				continue
			}
			payload := strings.TrimSpace(line[len(ssePrefix):])
			if payload == "" || payload == sseSentinel {
				continue
			}
			if !gjson.Valid(payload) {
				log.Debugf("skipping undecodable stream line [%s]", t.requestID)
				continue
			}

			if !backendReported && onBackendID != nil {
				if backend := gjson.Get(payload, "backend_uuid"); backend.Exists() {
					backendReported = true
					onBackendID(backend.String())
				}
			}

			fullText := DecodeEnvelope([]byte(payload))
			if delta, ok := tracker.Emit(fullText); ok {
				if !emit(ContentChunk(t.requestID, t.model, delta)) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Errorf("stream read failed [%s]: %v", t.requestID, err)
			emit(ContentChunk(t.requestID, t.model, fmt.Sprintf("[Error: %v]", err)))
			emit(StopChunk(t.requestID, t.model))
			return
		}

		if !tracker.HasEmitted() {
			log.Warnf("upstream stream produced no content [%s]", t.requestID)
			if !emit(ContentChunk(t.requestID, t.model, "[Warning: No content returned]")) {
				return
			}
		}
		emit(StopChunk(t.requestID, t.model))
	}()

	return out
}
