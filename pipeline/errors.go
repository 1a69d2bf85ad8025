package pipeline

import "errors"

var ErrQueueFull = errors.New("dispatcher queue is full")
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// InfrastructureError marks failures that are not the fault of the code
// under test: workspace acquisition or a process that could not start.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

func IsInfrastructureError(err error) bool {
	var infraErr *InfrastructureError
	return errors.As(err, &infraErr)
}
