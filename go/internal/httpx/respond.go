// Package httpx holds the JSON response helpers shared by the REST handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/rs/zerolog/log"
)

// JSONResponse is any map body sent in a response.
type JSONResponse map[string]any

const requestIDHeader = "X-Request-ID"

// RespondJSON writes data with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, reqID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to write JSON response")
	}
}

// RespondError maps err onto a status code and the error body
// {success:false, error, kind[, minimumBid]}.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.Kind(err)

	body := JSONResponse{
		"success": false,
		"error":   err.Error(),
		"kind":    kind,
	}
	var tooLow *apperr.BidTooLowError
	if errors.As(err, &tooLow) {
		body["minimumBid"] = tooLow.Minimum
		body["currentBid"] = tooLow.Current
	}

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("responding with error")

	w.Header().Set(apperr.KindHeader, kind)
	RespondJSON(w, r, status, body)
}

// DecodeJSON reads a JSON body into dst. Malformed bodies wrap ErrInvalidArgument.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json body: %v: %w", err, apperr.ErrInvalidArgument)
	}
	return nil
}

// ParseUUID parses a path parameter, wrapping failures as ErrInvalidArgument.
func ParseUUID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q is not a valid id: %w", name, raw, apperr.ErrInvalidArgument)
	}
	return id, nil
}
