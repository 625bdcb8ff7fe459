package query_client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/meysamhadeli/dafc/providers/models"
)

// ErrorClass groups provider failures by how the query client reacts to them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassAuthentication
	ClassPaymentRequired
	ClassRequestTooLarge
	ClassRateLimited
	ClassTransient
)

const contextLengthExceededCode = "context_length_exceeded"

func (c ErrorClass) String() string {
	switch c {
	case ClassAuthentication:
		return "authentication failure"
	case ClassPaymentRequired:
		return "payment required"
	case ClassRequestTooLarge:
		return "request too large"
	case ClassRateLimited:
		return "rate limited"
	case ClassTransient:
		return "transient network error"
	default:
		return "unclassified error"
	}
}

// Retryable reports whether a failure of this class is worth another attempt.
// Unclassified failures are retried.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassAuthentication, ClassPaymentRequired, ClassRequestTooLarge:
		return false
	default:
		return true
	}
}

// Classify maps a provider failure to its ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == contextLengthExceededCode {
			return ClassRequestTooLarge
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return ClassAuthentication
		case http.StatusPaymentRequired:
			return ClassPaymentRequired
		case http.StatusRequestEntityTooLarge:
			return ClassRequestTooLarge
		case http.StatusTooManyRequests:
			return ClassRateLimited
		}
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return ClassTransient
		}
		return ClassUnknown
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	return ClassUnknown
}

// FatalError is returned when a query ends without a response.
type FatalError struct {
	Class    ErrorClass
	Attempts int
	// Exhausted is set when the failure was retryable but no retries were left.
	Exhausted bool
	Err       error
}

func (e *FatalError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Diagnosis returns remediation text for a fatal failure of the given class.
func Diagnosis(class ErrorClass) string {
	switch class {
	case ClassAuthentication:
		return "Authentication failed. Check that your API key (OPENROUTER_API_KEY or OPENAI_API_KEY) is valid for the configured endpoint and that the model name is available there."
	case ClassPaymentRequired:
		return "Payment required. Check your account credits or billing."
	case ClassRequestTooLarge:
		return "Context length exceeded. The model cannot handle the amount of context provided. Exclude more files or directories with .gitignore or .dafcignore, or lower max_context_tokens."
	case ClassRateLimited:
		return "Rate limited or quota exceeded. Wait before trying again or check your limits."
	case ClassTransient:
		return "Could not reach the API endpoint. Check your connection and the configured base URL."
	default:
		return "An unexpected error occurred while querying the model."
	}
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
