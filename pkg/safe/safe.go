package safe

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// PanicError carries a recovered panic value and the stack it was raised on.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Run executes fn, logging a panic instead of crashing the process.
func Run(fn func()) {
	RunWithLog(fn, "safe.Run")
}

// RunWithLog is Run with the component name attached to the log record.
func RunWithLog(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", stackTrace()),
			)
		}
	}()

	fn()
}

// Call executes fn and turns a panic into a *PanicError.
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: stackTrace()}
		}
	}()
	return fn()
}

// stackTrace keeps the first 20 frames below the recover site.
func stackTrace() string {
	lines := strings.Split(string(debug.Stack()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}

	formatted := []string{"Stack trace:"}
	for i, line := range lines {
		if i >= 40 {
			formatted = append(formatted, "  ... (truncated)")
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			formatted = append(formatted, "  "+line)
		}
	}
	return strings.Join(formatted, "\n")
}
