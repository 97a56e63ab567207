package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode identifies the failure class of a gateway error.
// Handlers and clients branch on codes, never on message text.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "validation_error"
	CodeRateLimited     ErrorCode = "rate_limited"
	CodeAuthConfig      ErrorCode = "auth_config_error"
	CodeUpstreamTimeout ErrorCode = "upstream_timeout"
	CodeUpstreamParse   ErrorCode = "upstream_parse_error"
	CodeInternal        ErrorCode = "internal_error"
)

// APIError is the structured error crossing the gateway boundary.
// It is constructed once and never mutated.
type APIError struct {
	Status  int       `json:"status"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d, %s): %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether a client may retry the failed request.
// 429 and all 5xx are transient; other 4xx are permanent request errors.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func NewValidationError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

func NewRateLimitError() *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimited,
		Message: "Too many requests. Please try again later.",
	}
}

func NewAuthConfigError() *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    CodeAuthConfig,
		Message: "Service configuration error. Please contact the administrator.",
	}
}

func NewUpstreamParseError(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: CodeUpstreamParse, Message: message}
}

// Sentinel errors for the model-response faults.
var (
	ErrEmptyResponse      = errors.New("empty response from model")
	ErrInvalidResponse    = errors.New("invalid response format")
	ErrIncompleteResponse = errors.New("incomplete response")
)

// upstream provider message tokens. The provider's literal wording is an
// implicit contract; this table is the single place it is depended on.
var upstreamTokens = []struct {
	tokens []string
	status int
	code   ErrorCode
}{
	{[]string{"quota", "rate limit", "RESOURCE_EXHAUSTED"}, http.StatusTooManyRequests, CodeRateLimited},
	{[]string{"API key", "authentication", "UNAUTHENTICATED"}, http.StatusInternalServerError, CodeAuthConfig},
	{[]string{"timeout", "DEADLINE_EXCEEDED"}, http.StatusGatewayTimeout, CodeUpstreamTimeout},
}

// ClassifyUpstream converts a raw provider error into a typed APIError.
// The raw message is carried in Details only when exposeDetails is set;
// production responses never leak provider text.
func ClassifyUpstream(err error, exposeDetails bool) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	msg := err.Error()
	for _, group := range upstreamTokens {
		for _, tok := range group.tokens {
			if !strings.Contains(msg, tok) {
				continue
			}
			out := &APIError{Status: group.status, Code: group.code}
			switch group.code {
			case CodeRateLimited:
				out.Message = "The service is temporarily busy. Please try again later."
			case CodeAuthConfig:
				out.Message = "Service configuration error. Please contact the administrator."
			case CodeUpstreamTimeout:
				out.Message = "The request timed out. Please try again."
			}
			if exposeDetails {
				out.Details = msg
			}
			return out
		}
	}

	out := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "An unexpected error occurred while generating guidance.",
	}
	if exposeDetails {
		out.Details = msg
	}
	return out
}
