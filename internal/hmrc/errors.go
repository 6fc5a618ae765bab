package hmrc

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the HMRC API, carrying enough of the
// response to reproduce the failure.
type APIError struct {
	Status  int
	Code    string // HMRC error code, when the body carried one
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HMRC API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HMRC API error (HTTP %d)", e.Status)
}

// IsAuthorization reports whether err is the remote rejecting the bearer
// token. This is the only failure class the client retries, once, after a
// forced refresh.
func IsAuthorization(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is the remote having no matching resource,
// e.g. a period with no filed return. A user-visible "nothing to show", not
// a crash.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsValidation reports whether the remote rejected the request shape or
// body. Never retried.
func IsValidation(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnprocessableEntity
}
