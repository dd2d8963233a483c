// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StringMessage wraps a single string result.
type StringMessage struct {
	Data string `json:"data"`
}

// BooleanMessage wraps a single boolean result.
type BooleanMessage struct {
	Data bool `json:"data"`
}
