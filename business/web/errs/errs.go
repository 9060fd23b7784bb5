// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// Classify maps an error from the blockchain packages to the response a
// client is allowed to see. Errors that are not recognized are reported as
// internal errors without their message.
func Classify(err error) (Response, int) {
	switch {
	case validate.IsFieldErrors(err):
		return Response{
			Error:  "data validation error",
			Fields: validate.GetFieldErrors(err).Fields(),
		}, http.StatusBadRequest

	case IsTrusted(err):
		t := GetTrusted(err)
		return Response{Error: t.Err.Error()}, t.Status

	case database.IsValidationError(err):
		return Response{Error: err.Error()}, http.StatusBadRequest

	case errors.Is(err, storage.ErrNotFound):
		return Response{Error: err.Error()}, http.StatusNotFound
	}

	return Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
}
