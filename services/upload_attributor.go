package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/videoplatform"
	"creatorChallengeAPI/utils"
)

type AttributionStatus string

const (
	StatusRecorded      AttributionStatus = "recorded"
	StatusDuplicate     AttributionStatus = "duplicate"
	StatusOutsideWindow AttributionStatus = "outside_window"
)

type Attribution struct {
	Status       AttributionStatus
	Upload       *upload.Record
	Challenge    *challenge.Challenge
	Change       LedgerChange
	Achievements []*achievement.Record
}

type UploadAttributor struct {
	store        storage.Store
	platform     videoplatform.Platform
	achievements *AchievementEvaluator
	dispatcher   *NotificationDispatcher
	logger       *zap.Logger
	maxRetries   int
	now          func() time.Time
}

func NewUploadAttributor(store storage.Store, platform videoplatform.Platform, achievements *AchievementEvaluator, dispatcher *NotificationDispatcher, maxRetries int, logger *zap.Logger) *UploadAttributor {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &UploadAttributor{
		store:        store,
		platform:     platform,
		achievements: achievements,
		dispatcher:   dispatcher,
		logger:       logger,
		maxRetries:   maxRetries,
		now:          time.Now,
	}
}

// SubmitManual attributes a video the owner pasted in. ref may be a watch URL, a
// short link or a bare id.
func (a *UploadAttributor) SubmitManual(ctx context.Context, clerkID string, challengeID uuid.UUID, ref string) (*Attribution, error) {
	owner, err := a.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	ch, err := a.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.OwnerID != owner.ID || ch.Status == challenge.StatusDeleted {
		return nil, apperr.NotFound("challenge %s", challengeID)
	}

	videoID, ok := utils.ExtractVideoID(ref)
	if !ok {
		return nil, apperr.Validation("%q is not a video link or id", ref)
	}

	exists, err := a.store.UploadExists(ctx, ch.ID, videoID)
	if err != nil {
		return nil, err
	}
	if exists {
		attributionsTotal.WithLabelValues(string(upload.SourceManual), string(StatusDuplicate)).Inc()
		return &Attribution{Status: StatusDuplicate, Challenge: ch}, nil
	}

	conn, err := a.store.GetChannelConnection(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	video, err := a.platform.GetVideo(ctx, conn, videoID)
	if err != nil {
		return nil, err
	}

	return a.Attribute(ctx, ch.ID, conn.ChannelID, video, upload.SourceManual)
}

// Attribute records video against the earliest open slot whose window contains its
// publish time. Duplicates and videos outside every window are results, not errors.
func (a *UploadAttributor) Attribute(ctx context.Context, challengeID uuid.UUID, channelID string, video *videoplatform.Video, source upload.Source) (*Attribution, error) {
	result, err := a.attribute(ctx, challengeID, channelID, video, source)
	outcome := "error"
	if err == nil {
		outcome = string(result.Status)
	} else if errors.Is(err, apperr.ErrWrongChannel) {
		outcome = "wrong_channel"
	}
	attributionsTotal.WithLabelValues(string(source), outcome).Inc()
	if err != nil {
		return nil, err
	}

	if result.Status == StatusRecorded {
		a.afterRecord(ctx, result)
	}
	return result, nil
}

func (a *UploadAttributor) attribute(ctx context.Context, challengeID uuid.UUID, channelID string, video *videoplatform.Video, source upload.Source) (*Attribution, error) {
	if video.ChannelID != channelID {
		return nil, apperr.WrongChannel("video %s is on channel %s, not %s", video.ID, video.ChannelID, channelID)
	}

	// Cheap pre-check; the storage constraint is what actually guarantees uniqueness.
	exists, err := a.store.UploadExists(ctx, challengeID, video.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Attribution{Status: StatusDuplicate}, nil
	}

	for attempt := 0; attempt < a.maxRetries; attempt++ {
		ch, err := a.store.GetChallenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		switch ch.Status {
		case challenge.StatusActive:
		case challenge.StatusCompleted:
			return &Attribution{Status: StatusOutsideWindow, Challenge: ch}, nil
		default:
			return nil, apperr.Validation("challenge is %s", ch.Status)
		}

		idx, ok := ch.OpenSlotFor(video.PublishedAt)
		if !ok {
			return &Attribution{Status: StatusOutsideWindow, Challenge: ch}, nil
		}
		_, deadline, _ := ch.Window(idx)
		onTime := !video.PublishedAt.After(deadline)

		now := a.now()
		next, change := ApplyUpload(ch, idx, video.ID, onTime, now)
		rec := &upload.Record{
			ChallengeID:  ch.ID,
			VideoID:      video.ID,
			Title:        video.Title,
			URL:          video.URL,
			PublishedAt:  video.PublishedAt,
			SlotIndex:    idx,
			SlotDate:     ch.Schedule[idx].TargetDate,
			OnTime:       onTime,
			PointsEarned: change.SlotPoints,
			ViewCount:    video.Stats.Views,
			LikeCount:    video.Stats.Likes,
			CommentCount: video.Stats.Comments,
			Duration:     video.Duration,
			Source:       source,
		}

		err = a.store.RecordUpload(ctx, next, rec)
		switch {
		case err == nil:
			a.logger.Info("upload attributed",
				zap.String("challenge_id", ch.ID.String()),
				zap.String("video_id", video.ID),
				zap.Int("slot", idx),
				zap.Bool("on_time", onTime),
				zap.Int("points", change.SlotPoints),
				zap.String("source", string(source)),
			)
			return &Attribution{Status: StatusRecorded, Upload: rec, Challenge: next, Change: change}, nil
		case errors.Is(err, storage.ErrDuplicate):
			return &Attribution{Status: StatusDuplicate, Challenge: ch}, nil
		case errors.Is(err, storage.ErrVersionConflict):
			a.logger.Debug("challenge changed during attribution, retrying",
				zap.String("challenge_id", ch.ID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		default:
			return nil, err
		}
	}
	return nil, apperr.Storage("record upload", storage.ErrVersionConflict)
}

// afterRecord runs the secondary effects of a recorded upload. Their failures are
// logged and never reach the caller.
func (a *UploadAttributor) afterRecord(ctx context.Context, result *Attribution) {
	ch := result.Challenge
	now := a.now()

	if a.achievements != nil {
		unlocked, err := a.achievements.Evaluate(ctx, ch)
		if err != nil {
			a.logger.Error("achievement evaluation failed",
				zap.String("challenge_id", ch.ID.String()),
				zap.Error(err),
			)
		}
		result.Achievements = unlocked
		for _, u := range unlocked {
			ch.PointsEarned += u.Points
		}
	}

	if a.dispatcher != nil {
		a.dispatcher.NotifyUpload(ctx, ch, result.Upload, result.Change, result.Achievements, now)
	}
}
