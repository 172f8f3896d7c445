package llm

import "fmt"

// TransientError marks an oracle call that failed after exhausting
// retries on a retryable condition (rate limit, 5xx, timeout).
// Callers decide whether to skip the record or abort the phase.
type TransientError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedOutputError marks an oracle response that arrived but could
// not be used: invalid JSON, a verdict that is not "0" or "1", or a
// payload failing structural validation. The raw text is preserved for
// the audit artifacts.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:120] + "..."
	}
	return fmt.Sprintf("oracle output unusable: %v (raw: %q)", e.Err, raw)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
