package replay

import (
	"errors"
	"fmt"
)

// ErrNotLegacyForm is returned for forms that carry no legacy post URL field.
var ErrNotLegacyForm = errors.New("form has no legacy post URL field")

// DeliveryError represents a failed POST to the legacy endpoint.
type DeliveryError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery to %s failed: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("delivery to %s failed: HTTP status %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// DownloadError represents a failure to retrieve an uploaded file.
type DownloadError struct {
	FieldID int
	URL     string
	Cause   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of upload for field %d (%s) failed: %v", e.FieldID, e.URL, e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// FormatError represents a formatter failure for a field.
type FormatError struct {
	FieldID int
	Cause   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("formatting field %d failed: %v", e.FieldID, e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
