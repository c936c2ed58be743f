package utils

import "fmt"

// PanicError wraps a value recovered from a panic
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// CatchPanic call a `f` and return the recovered panic as an error.
// Logging is left to the caller, which knows what was running.
func CatchPanic(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	f()
	return nil
}

// RunPanicless run `f`, return true if there is no panic
func RunPanicless(f func()) bool {
	return CatchPanic(f) == nil
}
