package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/services"
)

type CronHandler struct {
	orchestrator *services.CronOrchestrator
	timeout      time.Duration
	logger       *zap.Logger
}

// NewCronHandler runs each triggered sweep for at most timeout, however long the
// caller stays connected.
func NewCronHandler(orchestrator *services.CronOrchestrator, timeout time.Duration, logger *zap.Logger) *CronHandler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &CronHandler{orchestrator: orchestrator, timeout: timeout, logger: logger}
}

// POST /internal/cron/sweep - run a sweep now; ?challenge_id= limits it to one challenge
func (h *CronHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	// A scheduler hanging up must not abandon a sweep halfway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()
	now := time.Now()

	if raw := r.URL.Query().Get("challenge_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid challenge ID")
			return
		}
		if err := h.orchestrator.SweepOne(ctx, id, now); err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge swept"})
		return
	}

	report, err := h.orchestrator.Sweep(ctx, now)
	switch {
	case errors.Is(err, services.ErrSweepInProgress):
		respondWithError(w, http.StatusConflict, err.Error())
		return
	case report == nil && err != nil:
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

type HealthHandler struct {
	store storage.Store
}

func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "challenge-engine",
	})
}
