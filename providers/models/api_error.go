package models

import "fmt"

// APIError is a failure reported by the provider endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API request failed with status code '%d'", e.StatusCode)
	if e.Type != "" {
		msg += fmt.Sprintf(" (type: %s)", e.Type)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" (code: %s)", e.Code)
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	return msg
}
