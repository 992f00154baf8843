package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic turns a recovered value into a fatal internal error carrying
// the stack. A nil value yields nil.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}
	return ErrInternal.
		WithCause(cause).
		WithDetail("stack", string(debug.Stack())).
		AsFatal()
}
