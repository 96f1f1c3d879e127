package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/services"
)

type UploadHandler struct {
	attributor       *services.UploadAttributor
	challengeService *services.ChallengeService
	logger           *zap.Logger
}

func NewUploadHandler(attributor *services.UploadAttributor, challengeService *services.ChallengeService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		attributor:       attributor,
		challengeService: challengeService,
		logger:           logger,
	}
}

// POST /api/v1/challenges/{id}/uploads
func (h *UploadHandler) SubmitUpload(w http.ResponseWriter, r *http.Request) {
	clerkID, id, ok := challengeRequest(w, r)
	if !ok {
		return
	}
	// Manual submission reads the video from the platform.
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var req upload.SubmitUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	if req.Video == "" {
		respondWithError(w, http.StatusBadRequest, "video is required")
		return
	}

	res, err := h.attributor.SubmitManual(ctx, clerkID, id, req.Video)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	resp := upload.SubmitUploadResponse{Status: string(res.Status)}
	code := http.StatusOK
	switch res.Status {
	case services.StatusRecorded:
		code = http.StatusCreated
		resp.Upload = res.Upload
		for _, a := range res.Achievements {
			resp.Achievements = append(resp.Achievements, a.Title)
		}
		if res.Upload.OnTime {
			resp.Message = fmt.Sprintf("Upload recorded for slot %d, +%d points", res.Upload.SlotIndex+1, res.Upload.PointsEarned)
		} else {
			resp.Message = fmt.Sprintf("Late upload recorded for slot %d, +%d points", res.Upload.SlotIndex+1, res.Upload.PointsEarned)
		}
	case services.StatusDuplicate:
		resp.Message = "This video is already recorded for the challenge"
	case services.StatusOutsideWindow:
		resp.Message = "This video was not published inside any open slot"
	}

	respondWithJSON(w, code, resp)
}

// GET /api/v1/challenges/{id}/uploads
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	clerkID, id, ok := challengeRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uploads, err := h.challengeService.ListUploads(ctx, clerkID, id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, uploads)
}
