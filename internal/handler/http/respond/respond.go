// Package respond writes monitoring responses.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// TextContentType is the content type of the text exposition format.
const TextContentType = "text/plain; version=0.0.4; charset=utf-8"

// JSON writes v as JSON with the given status code. Health responses must never be
// cached by intermediaries, so every JSON response carries no-store.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Text writes body in the text exposition format.
func Text(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", TextContentType)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Default().Debug("failed to write text response", slog.Any("error", err))
	}
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]string{"error": msg})
}

// MethodNotAllowed rejects the request and advertises the allowed methods.
func MethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	Error(w, http.StatusMethodNotAllowed, "method not allowed")
}
