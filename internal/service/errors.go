package service

import (
	"errors"
	"net/http"
)

var ErrValidation = errors.New("validation failed")

// Error carries the HTTP status the handler layer should answer with.
type Error struct {
	Code    int
	Message string
	Kind    error
}

func (e *Error) Error() string   { return e.Message }
func (e *Error) StatusCode() int { return e.Code }
func (e *Error) Unwrap() error   { return e.Kind }

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrDocumentNotFound       = NewError(http.StatusNotFound, "Document not found")
	ErrConversationNotFound   = NewError(http.StatusNotFound, "Conversation not found")
	ErrConversationNoAccess   = NewError(http.StatusNotFound, "Conversation not found or access denied")
	ErrSharedNotFound         = NewError(http.StatusNotFound, "Shared conversation not found")
	ErrInvalidShareToken      = NewError(http.StatusBadRequest, "Invalid share token")
	ErrUserNotFound           = NewError(http.StatusNotFound, "User not found")
	ErrVectorIndexUnavailable = NewError(http.StatusServiceUnavailable, "Vector index unavailable")
)

func validationError(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message, Kind: ErrValidation}
}
