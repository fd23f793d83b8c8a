// Package httputil holds the JSON envelope helpers used by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "auditflow/pkg/domain-errors"
)

const internalMessage = "Internal server error"

// ErrorResponse is the wire shape of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into an error envelope. Errors without a domain
// code, and internal errors, are reported with a generic message so storage
// details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok || de.Code == dErrors.CodeInternal {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: internalMessage,
			Code:  string(dErrors.CodeInternal),
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), ErrorResponse{
		Error: de.Message,
		Code:  string(de.Code),
	})
}

// DecodeJSON reads a JSON body into dst. Oversized bodies (see
// http.MaxBytesReader) and malformed JSON both become validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return dErrors.New(dErrors.CodeValidation, "request body too large")
		}
		return dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	return nil
}
