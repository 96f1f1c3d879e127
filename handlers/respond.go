package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the error taxonomy onto HTTP statuses. Only
// unclassified and storage failures are logged; the rest are the caller's problem.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		respondWithError(w, http.StatusBadRequest, err.Error())
	case apperr.ErrNotFound:
		respondWithError(w, http.StatusNotFound, err.Error())
	case apperr.ErrWrongChannel:
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case apperr.ErrDuplicateUpload:
		respondWithError(w, http.StatusConflict, err.Error())
	case apperr.ErrExternalService:
		logger.Warn("external service failed", zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "video platform is unavailable, try again later")
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			respondWithError(w, http.StatusGatewayTimeout, "request timed out")
			return
		}
		logger.Error("request failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
