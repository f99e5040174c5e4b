package htmltree

import "fmt"

// ParseError represents a failure reading or parsing the HTML input
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("html parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("html parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
