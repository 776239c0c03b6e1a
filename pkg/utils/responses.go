package utils

import (
	"encoding/json"
	"net/http"
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-Id"

// Response is the envelope of every JSON reply. RequestID repeats the
// X-Request-Id header so a payer's error report can be matched to the logs.
type Response struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

func ResponseJSON(w http.ResponseWriter, code int, status bool, message string, data, errors any) {
	body := Response{
		Status:    status,
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
		Data:      data,
		Errors:    errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusOK, true, message, data, nil)
}

func ResponseCreated(w http.ResponseWriter, message string, data any) {
	ResponseJSON(w, http.StatusCreated, true, message, data, nil)
}

// ResponseBadRequest answers 400 with optional per-field errors.
func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseJSON(w, http.StatusBadRequest, false, message, nil, errors)
}

func ResponseUnauthorized(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusUnauthorized, message)
}

func ResponseNotFound(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusNotFound, message)
}

func ResponseInternalError(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusInternalServerError, message)
}

// ResponseBadGateway is used when the payment gateway call fails.
func ResponseBadGateway(w http.ResponseWriter, message string) {
	responseFailure(w, http.StatusBadGateway, message)
}

func responseFailure(w http.ResponseWriter, code int, message string) {
	ResponseJSON(w, code, false, message, nil, nil)
}
