package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/webform-converter/internal/conversion"
	"github.com/jonathan/webform-converter/internal/forms"
	"github.com/jonathan/webform-converter/internal/htmltree"
	"github.com/jonathan/webform-converter/internal/replay"
)

// ErrInvalidCredentials indicates a wrong admin password
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// ErrAuthDisabled indicates no admin password hash is configured
type ErrAuthDisabled struct{}

func (e *ErrAuthDisabled) Error() string {
	return "token issuance is disabled: ADMIN_PASSWORD_HASH is not set"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidCreds *ErrInvalidCredentials
		authDisabled *ErrAuthDisabled
		validation   *ErrValidation
		notFound     *forms.NotFoundError
		storage      *forms.StorageError
		empty        *conversion.EmptyInputError
		structural   *conversion.StructuralError
		invalid      *conversion.InvalidSchemaError
		transform    *conversion.TransformError
		parse        *htmltree.ParseError
		delivery     *replay.DeliveryError
		download     *replay.DownloadError
	)

	switch {
	case errors.As(err, &invalidCreds):
		return http.StatusUnauthorized
	case errors.As(err, &authDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &empty), errors.As(err, &structural), errors.As(err, &invalid),
		errors.As(err, &transform), errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, replay.ErrNotLegacyForm):
		return http.StatusConflict
	case errors.As(err, &delivery), errors.As(err, &download):
		return http.StatusBadGateway
	case errors.As(err, &storage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errorKind returns a stable machine-readable name for an error.
func errorKind(err error) string {
	var (
		empty      *conversion.EmptyInputError
		structural *conversion.StructuralError
		invalid    *conversion.InvalidSchemaError
		transform  *conversion.TransformError
		delivery   *replay.DeliveryError
		download   *replay.DownloadError
	)

	switch {
	case errors.As(err, &empty):
		return "empty_input"
	case errors.As(err, &structural):
		return "structural_error"
	case errors.As(err, &invalid):
		return "invalid_schema"
	case errors.As(err, &transform):
		return "transform_error"
	case errors.Is(err, replay.ErrNotLegacyForm):
		return "not_legacy_form"
	case errors.As(err, &delivery):
		return "delivery_failed"
	case errors.As(err, &download):
		return "download_failed"
	default:
		return ""
	}
}
