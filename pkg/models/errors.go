package models

// ErrorType categorizes API error responses.
type ErrorType string

const (
	GeneralErrorType    ErrorType = "general"
	ValidationErrorType ErrorType = "validation"
	NotFoundErrorType   ErrorType = "not_found"
	ConflictErrorType   ErrorType = "conflict"
)

// APIResponse is the envelope returned by every API endpoint.
type APIResponse struct {
	Status    string    `json:"status"` // "success" or "error"
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}
