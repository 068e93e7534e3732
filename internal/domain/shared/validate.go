package shared

// Result is the outcome of a field-level validation check.
// Callers branch on Valid; validation never panics and never returns an error.
type Result struct {
	// Valid reports whether the input passed.
	Valid bool

	// Value is the normalized input (trimmed, clamped) when Valid is true.
	Value string

	// Message is a human-readable rejection reason when Valid is false.
	Message string
}

// OK returns a passing Result carrying the normalized value.
func OK(value string) Result {
	return Result{Valid: true, Value: value}
}

// Fail returns a failing Result with the given message.
func Fail(message string) Result {
	return Result{Valid: false, Message: message}
}
