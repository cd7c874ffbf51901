package refresh

import "fmt"

// PanicError reports a panic raised by a refresh function. Waiters receive it as
// an ordinary error so the in-flight flag is always released.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("refresh panicked: %v", e.Value)
}
