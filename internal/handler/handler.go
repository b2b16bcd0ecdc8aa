package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies read by handlers.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code. The status is
// already sent when encoding fails, so the failure is only logged.
func writeJSON(w http.ResponseWriter, status int, data interface{}, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// writeError writes err as a model.ErrorResponse. Errors that are not domain
// errors are reported as a generic 500.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	de, ok := model.AsDomainError(err)
	if !ok {
		de = model.NewInternalError("Internal server error", err)
	}

	event := logger.Warn()
	if de.StatusCode >= http.StatusInternalServerError {
		event = logger.Error()
		if cause := errors.Unwrap(de); cause != nil {
			event = event.AnErr("cause", cause)
		}
	}
	event.Str("code", de.Code).Int("status", de.StatusCode).Msg(de.Message)

	writeJSON(w, de.StatusCode, de.Response(), logger)
}

// decodeJSON reads a single JSON document from the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Request body is not valid JSON", http.StatusBadRequest)
	}
	if dec.More() {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Request body must contain a single JSON object", http.StatusBadRequest)
	}
	return nil
}

// pathUUID parses the named path value as a UUID.
func pathUUID(r *http.Request, name, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, model.NewInvalidRequestError("Invalid " + label + " ID format")
	}
	return id, nil
}
