package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a failed call against the GitHub API. StatusCode is zero when no
// HTTP response was received.
type Error struct {
	Type       ErrorType `json:"type"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
	Reason     string    `json:"reason,omitempty"`
	Resource   string    `json:"resource,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeMessage returns the short "<status> - <message>" form used in event
// lines.
func (e *Error) CodeMessage() string {
	reason := e.Reason
	if reason == "" {
		reason = e.Message
	}
	if e.StatusCode == 0 {
		return reason
	}
	return fmt.Sprintf("%d - %s", e.StatusCode, reason)
}

// NewError creates a new Error with the specified type and message
func NewError(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err wraps an *Error of the given type
func IsType(err error, errorType ErrorType) bool {
	var ghErr *Error
	return errors.As(err, &ghErr) && ghErr.Type == errorType
}

// WrapGitHubError wraps a GitHub API error into our structured error type
func WrapGitHubError(err error, resource string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		if existing.Resource == "" {
			existing.Resource = resource
		}
		return existing
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &Error{
			Type:       ErrorTypeRateLimit,
			StatusCode: statusOf(rateErr.Response),
			Message:    fmt.Sprintf("Rate limit exceeded. Reset at %v", rateErr.Rate.Reset.Time),
			Reason:     rateErr.Message,
			Resource:   resource,
			Cause:      err,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &Error{
			Type:       ErrorTypeRateLimit,
			StatusCode: statusOf(abuseErr.Response),
			Message:    "Secondary rate limit exceeded. Please wait before retrying",
			Reason:     abuseErr.Message,
			Resource:   resource,
			Cause:      err,
		}
	}

	var apiErr *github.ErrorResponse
	if errors.As(err, &apiErr) {
		return parseGitHubAPIError(apiErr, resource)
	}

	if isNetworkError(err) {
		return &Error{
			Type:     ErrorTypeNetwork,
			Message:  "Network error occurred. Please check your connection and try again",
			Reason:   err.Error(),
			Resource: resource,
			Cause:    err,
		}
	}

	unknown := NewError(ErrorTypeUnknown, err.Error(), err)
	unknown.Resource = resource
	return unknown
}

// parseGitHubAPIError parses GitHub API error responses into structured errors
func parseGitHubAPIError(ghErr *github.ErrorResponse, resource string) *Error {
	baseErr := &Error{
		StatusCode: statusOf(ghErr.Response),
		Reason:     ghErr.Message,
		Resource:   resource,
		Cause:      ghErr,
	}

	switch baseErr.StatusCode {
	case http.StatusUnauthorized:
		baseErr.Type = ErrorTypeAuth
		baseErr.Message = "Authentication failed. Please check your GitHub token"

	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(ghErr.Message), "rate limit") {
			baseErr.Type = ErrorTypeRateLimit
			baseErr.Message = "GitHub API rate limit exceeded. Please wait before retrying"
		} else {
			baseErr.Type = ErrorTypePermission
			baseErr.Message = "Insufficient permissions. Your token may not have the required scopes"
		}

	case http.StatusNotFound:
		baseErr.Type = ErrorTypeNotFound
		if strings.Contains(resource, "label") {
			baseErr.Message = "Label not found"
		} else if strings.Contains(resource, "repository") {
			baseErr.Message = "Repository not found. Check the repository name and your access permissions"
		} else {
			baseErr.Message = "Resource not found"
		}

	case http.StatusConflict:
		baseErr.Type = ErrorTypeConflict
		baseErr.Message = "Resource conflict occurred"

	case http.StatusUnprocessableEntity:
		baseErr.Type = ErrorTypeValidation
		baseErr.Message = "Validation failed"

		if len(ghErr.Errors) > 0 {
			var validationErrors []string
			for _, err := range ghErr.Errors {
				switch {
				case err.Code == "already_exists":
					validationErrors = append(validationErrors, fmt.Sprintf("%s already exists", err.Field))
				case err.Field != "" && err.Message != "":
					validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", err.Field, err.Message))
				case err.Field != "":
					validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", err.Field, err.Code))
				default:
					validationErrors = append(validationErrors, err.Message)
				}
			}
			baseErr.Message = fmt.Sprintf("Validation failed: %s", strings.Join(validationErrors, "; "))
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr.Type = ErrorTypeNetwork
		baseErr.Message = "GitHub API is temporarily unavailable. Please try again later"

	default:
		baseErr.Type = ErrorTypeUnknown
		baseErr.Message = ghErr.Message
	}

	return baseErr
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
