package osu

import (
	"fmt"
	"net/http"
)

// MissingFieldError reports a required wire key that was absent from a
// response envelope.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// APIError is a non-success response from the osu! API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %s (%s)", e.Message, http.StatusText(e.StatusCode))
}
