package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"storefront-be/internal/logger"
)

// APIError is the JSON error envelope every handler returns.
type APIError struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func NewError(code, message string, status int) APIError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return APIError{Code: code, Message: message, Status: status}
}

func (e APIError) WithDetails(details map[string]any) APIError {
	if len(details) == 0 {
		return e
	}
	cp := make(map[string]any, len(details))
	for k, v := range details {
		cp[k] = v
	}
	e.Details = cp
	return e
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(ctx context.Context, w http.ResponseWriter, e APIError) {
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if id := logger.RequestIDFrom(ctx); id != "" {
		payload["request_id"] = id
	}
	for k, v := range e.Details {
		payload[k] = v
	}
	WriteJSON(w, e.Status, payload)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}
