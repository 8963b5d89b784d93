package browser

import "fmt"

// ExtractionError reports that the extraction script could not run or returned
// a payload the engine could not decode.
type ExtractionError struct {
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// StaleElementError reports that an element index could not be resolved
// against the current snapshot. The dispatcher has already refreshed the
// cache by the time this surfaces; the caller must re-request state and
// re-derive indices.
type StaleElementError struct {
	Index      int
	SnapshotID string
}

func (e *StaleElementError) Error() string {
	return fmt.Sprintf("element index %d is stale for snapshot %s: refresh state and retry", e.Index, e.SnapshotID)
}

// TransportTimeoutError reports that a transport primitive exceeded its
// per-attempt timeout. The underlying call may still complete later; its
// result is discarded.
type TransportTimeoutError struct {
	Operation string
	Timeout   string
}

func (e *TransportTimeoutError) Error() string {
	return fmt.Sprintf("transport operation %q timed out after %s", e.Operation, e.Timeout)
}

// DialogBlockedError reports that a native dialog prevented an action from
// completing and the configured policy is to surface it rather than resolve
// it automatically.
type DialogBlockedError struct {
	Message string
}

func (e *DialogBlockedError) Error() string {
	return fmt.Sprintf("action blocked by native dialog: %q", e.Message)
}

// SessionDeadError reports that the liveness probe failed before dispatch.
// No transport calls were attempted and no retry budget was spent.
type SessionDeadError struct {
	Cause error
}

func (e *SessionDeadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("browser session is not alive: %v", e.Cause)
	}
	return "browser session is not alive"
}

func (e *SessionDeadError) Unwrap() error { return e.Cause }

// NavigationDeniedError reports that a Navigate intent targeted a URL outside
// the configured allowlist. No transport call was made.
type NavigationDeniedError struct {
	URL string
}

func (e *NavigationDeniedError) Error() string {
	return fmt.Sprintf("navigation to %q denied by allowlist", e.URL)
}

// RetryExhaustedError wraps the last failure after the action-class retry
// budget is spent.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }
