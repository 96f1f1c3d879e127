package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/storage"
)

type AchievementEvaluator struct {
	store  storage.AchievementStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAchievementEvaluator(store storage.AchievementStore, logger *zap.Logger) *AchievementEvaluator {
	return &AchievementEvaluator{store: store, logger: logger, now: time.Now}
}

// Evaluate unlocks every rule that newly holds for ch and returns the new records.
// Types already unlocked are skipped before their predicate runs; a concurrent unlock
// of the same type is absorbed by the storage constraint.
func (e *AchievementEvaluator) Evaluate(ctx context.Context, ch *challenge.Challenge) ([]*achievement.Record, error) {
	existing, err := e.store.ListAchievements(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[achievement.Type]bool, len(existing))
	for _, a := range existing {
		unlocked[a.Type] = true
	}

	var (
		out  []*achievement.Record
		errs []error
	)
	for _, rule := range achievement.Pending(Snapshot(ch), unlocked) {
		rec := &achievement.Record{
			UserID:      ch.OwnerID,
			ChallengeID: ch.ID,
			Type:        rule.Type,
			Title:       rule.Title,
			Description: rule.Description,
			Points:      rule.Points,
			UnlockedAt:  e.now(),
		}
		err := e.store.UnlockAchievement(ctx, rec)
		switch {
		case err == nil:
			achievementsUnlocked.WithLabelValues(string(rule.Type)).Inc()
			e.logger.Info("achievement unlocked",
				zap.String("challenge_id", ch.ID.String()),
				zap.String("type", string(rule.Type)),
			)
			out = append(out, rec)
		case errors.Is(err, storage.ErrDuplicate):
		default:
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// List returns the full rule table with each rule's unlock state for ch.
func (e *AchievementEvaluator) List(ctx context.Context, ch *challenge.Challenge) ([]*achievement.AchievementWithStatus, error) {
	existing, err := e.store.ListAchievements(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	byType := make(map[achievement.Type]*achievement.Record, len(existing))
	for _, a := range existing {
		byType[a.Type] = a
	}

	var out []*achievement.AchievementWithStatus
	for _, rule := range achievement.Rules() {
		item := &achievement.AchievementWithStatus{
			Type:        rule.Type,
			Title:       rule.Title,
			Description: rule.Description,
			Points:      rule.Points,
		}
		if rec, ok := byType[rule.Type]; ok {
			at := rec.UnlockedAt
			item.Unlocked = true
			item.UnlockedAt = &at
		}
		out = append(out, item)
	}
	return out, nil
}
