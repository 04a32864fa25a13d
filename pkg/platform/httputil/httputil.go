// Package httputil centralizes JSON response writing and domain error
// translation so handlers stay thin and the error envelope stays consistent.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "aureus/pkg/domain-errors"
)

// detailBody is the public error envelope: {"detail": "..."}.
type detailBody struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response. Messages for
// internal and unavailable errors are not echoed to the caller; everything
// else surfaces its message as the detail.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status := dErrors.ToHTTPStatus(code)

	detail := "internal server error"
	switch code {
	case dErrors.CodeInternal:
		// keep the generic detail
	case dErrors.CodeUnavailable:
		detail = "service unavailable"
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			detail = de.Message
		}
	}

	WriteJSON(w, status, detailBody{Detail: detail})
}
