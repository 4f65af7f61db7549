// Package httputil contains the small amount of JSON plumbing shared by all
// HTTP handlers: response writing, domain-error mapping, and request decoding.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "adoro/pkg/domain-errors"
)

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON encodes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to an HTTP status and JSON body. Internal
// errors never leak their description to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	body := errorBody{Error: string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) {
		body.Description = de.Message
	}

	status := http.StatusInternalServerError
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		status = http.StatusUnauthorized
	case dErrors.CodeForbidden:
		status = http.StatusForbidden
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeConflict:
		status = http.StatusConflict
	case dErrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case dErrors.CodeInternal:
		// Do not echo internals back to the client.
		body = errorBody{Error: "internal_error"}
	default:
		body = errorBody{Error: "internal_error"}
	}

	WriteJSON(w, status, body)
}

// Decode reads a JSON request body into T, rejecting unknown fields. A false
// return means the error response has already been written.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	return req, true
}
