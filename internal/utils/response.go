package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-invitations/internal/models"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now().UTC(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError maps a domain error to its status code and writes the error
// envelope. Unknown errors become 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	WriteJSON(w, status, ErrorResponse(message, detail))
}

func StatusFor(err error) (int, string) {
	var invalidEmail *models.InvalidEmailError
	switch {
	case errors.Is(err, models.ErrNotAuthorized):
		return http.StatusForbidden, "You don't have permission to do that"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrDuplicateInvitation):
		return http.StatusConflict, "An invitation has already been sent to this email"
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict, "This email is already registered to another account"
	case errors.As(err, &invalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, models.ErrEventEnded):
		return http.StatusGone, "This event has already ended"
	case errors.Is(err, models.ErrAlreadyResponded):
		return http.StatusConflict, "You have already responded to this invitation"
	case errors.Is(err, models.ErrInvalidResponse),
		errors.Is(err, models.ErrInvalidEventWindow),
		errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrInvalidInput, err)
	}
	return nil
}
