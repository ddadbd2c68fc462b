package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult means the service answered successfully with no text.
	ErrEmptyResult = errors.New("empty translation result")
	// ErrNotConfigured means credentials required by the service are missing.
	ErrNotConfigured = errors.New("translation service not configured")
)

// TransportError covers network failures, timeouts, non-success HTTP status
// codes and undecodable responses.
type TransportError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed response carrying a non-zero error code.
type APIError struct {
	Service string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API error code %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: API error code %d: %s", e.Service, e.Code, e.Message)
}

// xfyun codes that point at local configuration rather than a transient fault.
var authCodes = map[int]string{
	10013: "check the app_id",
	10014: "check the request signature and secret",
	11200: "check the api_key and service authorization",
}

// IsAuth reports whether the code indicates bad credentials or signing.
func (e *APIError) IsAuth() bool {
	_, ok := authCodes[e.Code]
	return ok
}

// Hint returns an operator-facing suggestion for the code.
func (e *APIError) Hint() string {
	if h, ok := authCodes[e.Code]; ok {
		return h
	}
	return fmt.Sprintf("see https://www.xfyun.cn/document/error-code?code=%d", e.Code)
}

// Class names the failure category of err for logs and metrics.
func Class(err error) string {
	var (
		apiErr       *APIError
		transportErr *TransportError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "auth"
	case errors.As(err, &apiErr):
		if apiErr.IsAuth() {
			return "auth"
		}
		return "api"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "transport"
	}
}

// IsAuth reports whether err is a configuration problem that retrying will
// not fix.
func IsAuth(err error) bool {
	return Class(err) == "auth"
}
