package api

import (
	"errors"
	"net/http"

	"github.com/quillpad/quillpad/internal/governance"
)

type AppError struct {
	Code      int    `json:"-"`
	Message   string `json:"error"`
	ErrorCode string `json:"code,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// HandleError writes err as a JSON error. Domain errors are rendered by
// governance.WriteHTTP; anything unclassified becomes a 500.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorCode(w, appErr.Code, appErr.Message, appErr.ErrorCode)
		return
	}
	var govErr *governance.Error
	if errors.As(err, &govErr) {
		governance.WriteHTTP(w, govErr)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
