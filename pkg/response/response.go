// Package response writes the JSON envelope the canteen API answers with:
//
//	{"status":201,"message":"Order placed","data":{...},"errors":{...}}
//
// Failures still carry data where there is state to redraw, so a client can
// show the composer or scanner exactly as the server left it.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// JSON writes env using env.Status as the HTTP status (200 when zero).
// Session state changes on every call, so nothing here is cacheable.
func JSON(w http.ResponseWriter, env Envelope) {
	if env.Status == 0 {
		env.Status = http.StatusOK
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(env.Status)
	_ = json.NewEncoder(w).Encode(env)
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, Envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, Envelope{Status: http.StatusCreated, Data: data})
}

// Error sends status with message, or with the status text when message
// is empty.
func Error(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	JSON(w, Envelope{Status: status, Message: message})
}

// Fail is Error plus the state the failure left behind.
func Fail(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, Envelope{Status: status, Message: message, Data: data})
}

// ValidationError sends a 422 keyed by form field.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	JSON(w, Envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func NotFound(w http.ResponseWriter) { Error(w, http.StatusNotFound, "Not found") }
