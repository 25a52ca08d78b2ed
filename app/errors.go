package app

import "fmt"

// RenderError reports a failure after the document was loaded, or a host
// page that lacks required elements.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
