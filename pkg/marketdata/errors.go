package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error upstream error carrying an HTTP-like status code
type Error interface {
	error
	GetType() string
	GetCode() int
	GetDetails() string
}

// BaseError common fields of every upstream error
type BaseError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
	Code    int    `json:"code"`
}

func (e *BaseError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *BaseError) GetType() string {
	return e.Type
}

func (e *BaseError) GetCode() int {
	return e.Code
}

func (e *BaseError) GetDetails() string {
	return e.Details
}

// NetworkError transport failure (reset, DNS, refused)
type NetworkError struct {
	*BaseError
}

func NewNetworkError(message string) *NetworkError {
	return &NetworkError{
		BaseError: &BaseError{
			Type:    "NetworkError",
			Message: message,
			Code:    http.StatusBadGateway,
		},
	}
}

// RequestTimeout request exceeded its timeout
type RequestTimeout struct {
	*BaseError
}

func NewRequestTimeout(message string) *RequestTimeout {
	return &RequestTimeout{
		BaseError: &BaseError{
			Type:    "RequestTimeout",
			Message: message,
			Code:    http.StatusGatewayTimeout,
		},
	}
}

// RateLimitExceeded provider answered 429
type RateLimitExceeded struct {
	*BaseError
	RetryAfter int // seconds
}

func NewRateLimitExceeded(message string, retryAfter int) *RateLimitExceeded {
	return &RateLimitExceeded{
		BaseError: &BaseError{
			Type:    "RateLimitExceeded",
			Message: message,
			Code:    http.StatusTooManyRequests,
		},
		RetryAfter: retryAfter,
	}
}

// ProviderUnavailable provider answered 5xx
type ProviderUnavailable struct {
	*BaseError
}

func NewProviderUnavailable(message string, status int) *ProviderUnavailable {
	return &ProviderUnavailable{
		BaseError: &BaseError{
			Type:    "ProviderUnavailable",
			Message: message,
			Code:    status,
		},
	}
}

// BadRequest non-retryable 4xx
type BadRequest struct {
	*BaseError
}

func NewBadRequest(message string, status int) *BadRequest {
	return &BadRequest{
		BaseError: &BaseError{
			Type:    "BadRequest",
			Message: message,
			Code:    status,
		},
	}
}

// HTTPError raw failed response
type HTTPError struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	URL        string `json:"url"`
	Body       string `json:"body"`
}

// createErrorFromHTTP maps a non-2xx response to a typed error.
func createErrorFromHTTP(httpErr HTTPError) Error {
	msg := fmt.Sprintf("HTTP %d: %s", httpErr.StatusCode, httpErr.StatusText)
	switch {
	case httpErr.StatusCode == http.StatusTooManyRequests:
		return NewRateLimitExceeded("too many requests", 60)
	case httpErr.StatusCode == http.StatusGatewayTimeout:
		return NewRequestTimeout("gateway timeout")
	case httpErr.StatusCode >= 500:
		return NewProviderUnavailable(msg, httpErr.StatusCode)
	case httpErr.StatusCode >= 400:
		err := NewBadRequest(msg, httpErr.StatusCode)
		err.Details = truncate(httpErr.Body, 200)
		return err
	default:
		return NewNetworkError(msg)
	}
}

// classifyTransportError maps an http.Client error to a typed error.
func classifyTransportError(err error) Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewRequestTimeout("request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewRequestTimeout("request timed out")
	}
	e := NewNetworkError("request failed")
	e.Details = err.Error()
	return e
}

// IsRetryable timeouts, network failures, 429 and 5xx are retried.
func IsRetryable(err error) bool {
	switch err.(type) {
	case *NetworkError, *RequestTimeout, *RateLimitExceeded, *ProviderUnavailable:
		return true
	default:
		return false
	}
}

// StatusCode status carried by err, 502 when err is not typed.
func StatusCode(err error) int {
	var typed Error
	if errors.As(err, &typed) && typed.GetCode() != 0 {
		return typed.GetCode()
	}
	return http.StatusBadGateway
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
