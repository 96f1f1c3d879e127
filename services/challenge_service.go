package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/upload"
)

const maxTitleLength = 200

type ChallengeService struct {
	store        storage.Store
	dispatcher   *NotificationDispatcher
	achievements *AchievementEvaluator
	logger       *zap.Logger
	maxRetries   int
	now          func() time.Time
}

func NewChallengeService(store storage.Store, dispatcher *NotificationDispatcher, achievements *AchievementEvaluator, maxRetries int, logger *zap.Logger) *ChallengeService {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &ChallengeService{
		store:        store,
		dispatcher:   dispatcher,
		achievements: achievements,
		logger:       logger,
		maxRetries:   maxRetries,
		now:          time.Now,
	}
}

// Create validates req, generates the schedule and greets the owner.
func (s *ChallengeService) Create(ctx context.Context, clerkID string, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	owner, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, apperr.Validation("title is longer than %d characters", maxTitleLength)
	}
	if req.CadenceDays <= 0 {
		return nil, apperr.Validation("cadence must be positive, got %d", req.CadenceDays)
	}
	if req.VideosPerCadence < 0 {
		return nil, apperr.Validation("videos per cadence cannot be negative")
	}
	videosPerCadence := req.VideosPerCadence
	if videosPerCadence == 0 {
		videosPerCadence = 1
	}

	now := s.now().UTC()
	start := challenge.DayStart(now)
	if req.StartDate != nil {
		start = challenge.DayStart(req.StartDate.UTC())
	}

	durationDays := req.DurationDays
	switch {
	case durationDays > 0 && req.DurationMonths > 0:
		return nil, apperr.Validation("give either duration_days or duration_months, not both")
	case durationDays == 0 && req.DurationMonths != 0:
		durationDays, err = challenge.DurationFromMonths(start, req.DurationMonths)
		if err != nil {
			return nil, err
		}
	}

	schedule, err := challenge.GenerateSchedule(start, durationDays, req.CadenceDays)
	if err != nil {
		return nil, err
	}

	email := true
	if req.EmailNotifications != nil {
		email = *req.EmailNotifications
	}

	ch := &challenge.Challenge{
		ID:                 uuid.New(),
		OwnerID:            owner.ID,
		Title:              title,
		CadenceDays:        req.CadenceDays,
		VideosPerCadence:   videosPerCadence,
		DurationDays:       durationDays,
		StartDate:          start,
		Status:             challenge.StatusActive,
		EmailNotifications: email,
		Schedule:           schedule,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	ch.NextDeadline = NextDeadline(ch, now)

	if err := s.store.CreateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	s.logger.Info("challenge created",
		zap.String("challenge_id", ch.ID.String()),
		zap.String("owner_id", owner.ID.String()),
		zap.Int("slots", len(schedule)),
		zap.Int("cadence_days", ch.CadenceDays),
	)

	if s.dispatcher != nil {
		s.dispatcher.NotifyWelcome(ctx, ch, now)
	}
	return ch, nil
}

func (s *ChallengeService) List(ctx context.Context, clerkID string) (*challenge.ChallengeListResponse, error) {
	owner, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListChallengesByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	out := make([]*challenge.Challenge, 0, len(all))
	for _, ch := range all {
		if ch.Status != challenge.StatusDeleted {
			out = append(out, ch)
		}
	}
	return &challenge.ChallengeListResponse{Challenges: out, TotalCount: len(out)}, nil
}

// Get returns the challenge if clerkID owns it. Someone else's challenge looks
// exactly like a missing one.
func (s *ChallengeService) Get(ctx context.Context, clerkID string, id uuid.UUID) (*challenge.Challenge, error) {
	owner, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	ch, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.OwnerID != owner.ID || ch.Status == challenge.StatusDeleted {
		return nil, apperr.NotFound("challenge %s", id)
	}
	return ch, nil
}

// Update applies owner edits. Status may only move between active and paused;
// completion is reached through uploads and deletion through Delete.
func (s *ChallengeService) Update(ctx context.Context, clerkID string, id uuid.UUID, req *challenge.UpdateChallengeRequest) (*challenge.Challenge, error) {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, apperr.Validation("title cannot be empty")
		}
		if len(t) > maxTitleLength {
			return nil, apperr.Validation("title is longer than %d characters", maxTitleLength)
		}
		req.Title = &t
	}
	if req.Status != nil && *req.Status != challenge.StatusActive && *req.Status != challenge.StatusPaused {
		return nil, apperr.Validation("status can only be set to active or paused")
	}

	return s.mutate(ctx, clerkID, id, func(ch *challenge.Challenge) error {
		if req.Status != nil && *req.Status != ch.Status {
			if ch.Status != challenge.StatusActive && ch.Status != challenge.StatusPaused {
				return apperr.Validation("a %s challenge cannot be %s", ch.Status, *req.Status)
			}
			ch.Status = *req.Status
		}
		if req.Title != nil {
			ch.Title = *req.Title
		}
		if req.EmailNotifications != nil {
			ch.EmailNotifications = *req.EmailNotifications
		}
		return nil
	})
}

// Delete is a soft delete; the log and uploads stay for the record.
func (s *ChallengeService) Delete(ctx context.Context, clerkID string, id uuid.UUID) error {
	_, err := s.mutate(ctx, clerkID, id, func(ch *challenge.Challenge) error {
		ch.Status = challenge.StatusDeleted
		ch.NextDeadline = nil
		return nil
	})
	if err == nil {
		s.logger.Info("challenge deleted", zap.String("challenge_id", id.String()))
	}
	return err
}

// mutate reloads on version conflicts so owner edits never overwrite ledger writes.
func (s *ChallengeService) mutate(ctx context.Context, clerkID string, id uuid.UUID, fn func(*challenge.Challenge) error) (*challenge.Challenge, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		cur, err := s.Get(ctx, clerkID, id)
		if err != nil {
			return nil, err
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now().UTC()

		err = s.store.UpdateChallenge(ctx, next)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, apperr.Storage("update challenge", storage.ErrVersionConflict)
}

func (s *ChallengeService) ListUploads(ctx context.Context, clerkID string, id uuid.UUID) ([]*upload.Record, error) {
	ch, err := s.Get(ctx, clerkID, id)
	if err != nil {
		return nil, err
	}
	uploads, err := s.store.ListUploads(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = []*upload.Record{}
	}
	return uploads, nil
}

func (s *ChallengeService) ListAchievements(ctx context.Context, clerkID string, id uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	ch, err := s.Get(ctx, clerkID, id)
	if err != nil {
		return nil, err
	}
	return s.achievements.List(ctx, ch)
}

func (s *ChallengeService) ListNotificationLog(ctx context.Context, clerkID string, id uuid.UUID) ([]*notification.LogEntry, error) {
	ch, err := s.Get(ctx, clerkID, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListNotificationLog(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*notification.LogEntry{}
	}
	return entries, nil
}
