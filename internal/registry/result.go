package registry

import "fmt"

// Result is what a tool hands back to the caller. A Result with IsError set
// is still a normal return: failures are reported as data.
type Result struct {
	Text       string
	Structured any
	IsError    bool
}

// Text returns a plain text result.
func Text(s string) Result {
	return Result{Text: s}
}

// Textf returns a formatted text result.
func Textf(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...)}
}

// Failure returns an error result carrying msg.
func Failure(msg string) Result {
	return Result{Text: msg, IsError: true}
}

// Value returns a result whose text is display and whose structured content
// wraps v under "result".
func Value(display string, v any) Result {
	return Result{Text: display, Structured: map[string]any{"result": v}}
}
