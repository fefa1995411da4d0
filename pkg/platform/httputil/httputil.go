// Package httputil holds the JSON response and request helpers shared by
// handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "claimdesk/pkg/domain-errors"
)

// MaxBodyBytes caps decoded request bodies.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Rule             string `json:"rule,omitempty"`
}

// Preparable requests trim and default their fields before validation.
type Preparable interface {
	Normalize()
}

// Validatable requests report syntactic problems as coded errors.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status through its code. Internal errors never
// expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := dErrors.As(err); ok {
			resp.ErrorDescription = de.Error()
		}
		resp.Rule = dErrors.RuleOf(err)
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// DecodeAndPrepare decodes the JSON body into a T, then normalizes and
// validates it when T supports that. On failure the error response has
// already been written and ok is false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request body",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if p, ok := any(req).(Preparable); ok {
		p.Normalize()
	}
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			if logger != nil {
				logger.WarnContext(ctx, "request validation failed",
					"request_id", requestID,
					"error", err.Error(),
				)
			}
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}
