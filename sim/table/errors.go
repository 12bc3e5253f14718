package table

import "fmt"

// ResourceError reports a stored table resource that is missing or internally
// inconsistent. It is fatal for setup and never retried.
type ResourceError struct {
	Name   string // resource name or path
	Reason string // short description of what is wrong
	Err    error  // underlying cause, may be nil
}

func (e *ResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("table resource %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("table resource %q: %s", e.Name, e.Reason)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func resourceErrorf(name string, err error, format string, args ...any) *ResourceError {
	return &ResourceError{Name: name, Reason: fmt.Sprintf(format, args...), Err: err}
}
