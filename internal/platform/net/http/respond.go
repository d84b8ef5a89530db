// Package http provides helpers for writing responses the event sources expect.
// Webhook sources (tracker, chat) require exact raw bodies, so unlike a REST
// API there is no response envelope here.
package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "teambot/internal/platform/errors"
)

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Text writes a plain-text body with the given status
func Text(w stdhttp.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Ack writes the empty-object acknowledgement body the event sources expect
func Ack(w stdhttp.ResponseWriter) {
	JSON(w, stdhttp.StatusOK, map[string]any{})
}

// Error maps a project error to its status and writes the message as the body.
// Event sources treat the body as opaque; operators read it in delivery logs.
func Error(w stdhttp.ResponseWriter, err error) {
	Text(w, perr.HTTPStatus(err), err.Error())
}
