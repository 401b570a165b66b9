package transcript

// ValidationError reports a malformed request field. It is always raised
// before any storage or inference access, so a rejected request has no side
// effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// InferenceError wraps a failure from the inference backend. When it is
// returned, nothing new was persisted for the session.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return "inference failed: " + e.Err.Error() }

func (e *InferenceError) Unwrap() error { return e.Err }
