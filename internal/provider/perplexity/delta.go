package perplexity

// DeltaTracker turns cumulative text snapshots into suffix deltas. One
// tracker lives for the duration of a single outbound response; it is not
// safe for concurrent use and is never shared across requests.
type DeltaTracker struct {
	lastFullText string
	emitted      bool
}

// Emit compares a new cumulative snapshot against the longest one seen and
// returns the newly appended suffix. Empty snapshots, duplicates, and
// snapshots shorter than the last (out-of-order or corrupt events) produce
// nothing and leave the tracker unchanged.
func (t *DeltaTracker) Emit(fullText string) (string, bool) {
	if fullText == "" {
		return "", false
	}
	if len(fullText) <= len(t.lastFullText) {
		return "", false
	}

	delta := fullText[len(t.lastFullText):]
	t.lastFullText = fullText
	t.emitted = true
	return delta, true
}

// HasEmitted reports whether any delta has been produced for this response.
func (t *DeltaTracker) HasEmitted() bool {
	return t.emitted
}
