package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"example.com/backstage/services/procurement/internal/models"

	"github.com/pkg/errors"
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 1 << 20

// APIError is the single failure shape of every client call. Status is the
// HTTP status, or 0 when the request never got a response.
type APIError struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap exposes the transport error, if any
func (e *APIError) Unwrap() error {
	return e.Err
}

// HasFieldErrors reports whether the backend rejected individual fields
func (e *APIError) HasFieldErrors() bool {
	return len(e.Errors) > 0
}

// AsAPIError extracts an *APIError from err
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// newAPIError builds an APIError from a non-2xx response. It never fails: when
// the body is not a JSON error document the status text is used.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: statusText(resp),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}

	if body.Message != "" {
		apiErr.Message = body.Message
	}
	apiErr.Errors = body.Errors
	if len(apiErr.Errors) == 0 && len(body.ValidationErrors) > 0 {
		apiErr.Errors = body.ValidationErrors
	}

	return apiErr
}

// transportError wraps a failure that happened before a response arrived
func transportError(err error, format string, args ...interface{}) *APIError {
	return &APIError{
		Message: errors.Wrapf(err, format, args...).Error(),
		Err:     err,
	}
}

// statusText returns the reason phrase of the response status line
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return text
}
