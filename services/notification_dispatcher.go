package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/upload"
)

var streakMilestones = []int{3, 7, 14, 30, 50, 100}

// Reminder thresholds per cadence, ascending. With the 25h reminder window a daily
// challenge normally gets the 12h reminder; the 2h one fires only when the earlier
// one never went out.
var (
	dailyReminderThresholds  = []time.Duration{2 * time.Hour, 12 * time.Hour}
	weeklyReminderThresholds = []time.Duration{12 * time.Hour, 48 * time.Hour}
)

// upload_success is in-app and push only.
var emailTypes = map[notification.NotificationType]bool{
	notification.TypeWelcome:             true,
	notification.TypeReminder:            true,
	notification.TypeMissed:              true,
	notification.TypeStreak:              true,
	notification.TypeCompletion:          true,
	notification.TypeAchievementUnlocked: true,
}

type DispatcherConfig struct {
	ReminderDedup    time.Duration
	MissedGrace      time.Duration
	DeliveryTimeout  time.Duration
	MaxConflictRetry int
}

func (c *DispatcherConfig) setDefaults() {
	if c.ReminderDedup <= 0 {
		c.ReminderDedup = 25 * time.Hour
	}
	if c.MissedGrace <= 0 {
		c.MissedGrace = time.Hour
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 10 * time.Second
	}
	if c.MaxConflictRetry <= 0 {
		c.MaxConflictRetry = 5
	}
}

// NotificationDispatcher decides whether a notification is due, logs it and only
// then delivers it. Delivery failures are logged and counted, never returned.
type NotificationDispatcher struct {
	store  storage.Store
	email  notification.EmailSender
	push   notification.PushProvider
	cfg    DispatcherConfig
	logger *zap.Logger
}

func NewNotificationDispatcher(store storage.Store, email notification.EmailSender, push notification.PushProvider, cfg DispatcherConfig, logger *zap.Logger) *NotificationDispatcher {
	cfg.setDefaults()
	return &NotificationDispatcher{
		store:  store,
		email:  email,
		push:   push,
		cfg:    cfg,
		logger: logger,
	}
}

// Emit sends a notification at most once per (challenge, type, key). It reports
// whether this call was the one that sent it.
func (d *NotificationDispatcher) Emit(ctx context.Context, ch *challenge.Challenge, t notification.NotificationType, key string, data map[string]any, now time.Time) (bool, error) {
	entry := &notification.LogEntry{
		ChallengeID: ch.ID,
		Type:        t,
		DedupKey:    &key,
		SentAt:      now,
		Payload:     data,
	}
	return d.emit(ctx, ch, entry)
}

func (d *NotificationDispatcher) emit(ctx context.Context, ch *challenge.Challenge, entry *notification.LogEntry) (bool, error) {
	err := d.store.InsertNotificationLog(ctx, entry)
	if errors.Is(err, storage.ErrDuplicate) {
		notificationsTotal.WithLabelValues(string(entry.Type), "deduplicated").Inc()
		return false, nil
	}
	if err != nil {
		notificationsTotal.WithLabelValues(string(entry.Type), "error").Inc()
		return false, err
	}

	notificationsTotal.WithLabelValues(string(entry.Type), "sent").Inc()
	d.deliver(ctx, ch, entry.Type, entry.Payload)
	return true, nil
}

// deliver fans a logged notification out to the inbox, email and push.
func (d *NotificationDispatcher) deliver(ctx context.Context, ch *challenge.Challenge, t notification.NotificationType, data map[string]any) {
	title, body := notification.Render(t, data)
	logger := d.logger.With(
		zap.String("challenge_id", ch.ID.String()),
		zap.String("type", string(t)),
	)

	challengeID := ch.ID
	inboxData := map[string]any{"challenge_id": ch.ID.String()}
	for k, v := range data {
		inboxData[k] = v
	}
	err := d.store.AppendInbox(ctx, &notification.InboxItem{
		UserID:      ch.OwnerID,
		ChallengeID: &challengeID,
		Type:        t,
		Title:       title,
		Body:        body,
		Data:        inboxData,
	})
	if err != nil {
		deliveryFailures.WithLabelValues("inbox").Inc()
		logger.Error("failed to append inbox notification", zap.Error(err))
	}

	if d.email != nil && ch.EmailNotifications && emailTypes[t] {
		d.sendEmail(ctx, ch, title, body, logger)
	}

	if d.push != nil {
		tokens, err := d.store.ListDeviceTokens(ctx, ch.OwnerID)
		if err != nil {
			logger.Warn("failed to load device tokens", zap.Error(err))
		} else if len(tokens) > 0 {
			pctx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
			err := d.push.SendPush(pctx, tokens, title, body, inboxData)
			cancel()
			if err != nil {
				deliveryFailures.WithLabelValues("push").Inc()
				logger.Warn("push delivery failed", zap.Error(err))
			}
		}
	}
}

func (d *NotificationDispatcher) sendEmail(ctx context.Context, ch *challenge.Challenge, title, body string, logger *zap.Logger) {
	owner, err := d.store.GetUser(ctx, ch.OwnerID)
	if err != nil {
		logger.Warn("cannot email challenge owner", zap.Error(err))
		return
	}
	if owner.Email == "" {
		return
	}

	msg, err := notification.BuildEmail(owner.Email, owner.DisplayName, title, body)
	if err != nil {
		logger.Error("failed to build email", zap.Error(err))
		return
	}

	ectx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	defer cancel()
	id, err := d.email.Send(ectx, msg)
	if err != nil {
		deliveryFailures.WithLabelValues("email").Inc()
		logger.Warn("email delivery failed", zap.Error(apperr.External("email", err)))
		return
	}
	logger.Debug("email sent", zap.String("message_id", id))
}

func reminderThresholds(cadenceDays int) []time.Duration {
	if cadenceDays <= 1 {
		return dailyReminderThresholds
	}
	return weeklyReminderThresholds
}

// CheckReminder sends a reminder for the upcoming deadline when it is inside a
// threshold band and no reminder went out within the dedup window.
func (d *NotificationDispatcher) CheckReminder(ctx context.Context, ch *challenge.Challenge, now time.Time) (bool, error) {
	idx := -1
	var deadline time.Time
	for i, s := range ch.Schedule {
		if !s.Uploaded && s.Deadline().After(now) {
			idx, deadline = i, s.Deadline()
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	until := deadline.Sub(now)
	var band time.Duration
	for _, t := range reminderThresholds(ch.CadenceDays) {
		if until <= t {
			band = t
			break
		}
	}
	if band == 0 {
		return false, nil
	}

	last, err := d.store.LastNotification(ctx, ch.ID, notification.TypeReminder)
	if err != nil {
		return false, err
	}
	if last != nil && now.Sub(last.SentAt) < d.cfg.ReminderDedup {
		notificationsTotal.WithLabelValues(string(notification.TypeReminder), "suppressed").Inc()
		return false, nil
	}

	key := fmt.Sprintf("slot:%d:%dh", idx, int(band.Hours()))
	until25 := now.Add(d.cfg.ReminderDedup)
	return d.emit(ctx, ch, &notification.LogEntry{
		ChallengeID: ch.ID,
		Type:        notification.TypeReminder,
		DedupKey:    &key,
		SentAt:      now,
		DedupUntil:  &until25,
		Payload: map[string]any{
			"title":    ch.Title,
			"slot":     idx + 1,
			"hours":    int(math.Ceil(until.Hours())),
			"deadline": deadline.Format("Jan 2 15:04 MST"),
			"streak":   ch.StreakCount,
		},
	})
}

func missedKey(idx int) string {
	return fmt.Sprintf("slot:%d", idx)
}

// CheckMissed records every slot whose deadline plus grace has passed without an
// on-time upload. Each miss is logged together with its ledger penalty in one write.
// Only the most recent new miss is delivered so a catch-up sweep does not flood the
// owner. It returns the challenge state after the penalties.
func (d *NotificationDispatcher) CheckMissed(ctx context.Context, ch *challenge.Challenge, now time.Time) (*challenge.Challenge, int, error) {
	logged, err := d.store.ListNotificationLog(ctx, ch.ID)
	if err != nil {
		return ch, 0, err
	}
	seen := make(map[string]bool)
	for _, e := range logged {
		if e.Type == notification.TypeMissed && e.DedupKey != nil {
			seen[*e.DedupKey] = true
		}
	}

	cur := ch
	recorded, newest := 0, -1
	for idx := range ch.Schedule {
		s := cur.Schedule[idx]
		if !now.After(s.Deadline().Add(d.cfg.MissedGrace)) {
			break
		}
		if (s.Uploaded && s.OnTime) || seen[missedKey(idx)] {
			continue
		}

		next, ok, err := d.recordMiss(ctx, cur, idx, now)
		if err != nil {
			return cur, recorded, err
		}
		cur = next
		if ok {
			recorded++
			newest = idx
		}
	}

	if newest >= 0 {
		d.deliver(ctx, cur, notification.TypeMissed, missedPayload(cur, newest))
	}
	return cur, recorded, nil
}

func (d *NotificationDispatcher) recordMiss(ctx context.Context, cur *challenge.Challenge, idx int, now time.Time) (*challenge.Challenge, bool, error) {
	key := missedKey(idx)
	for attempt := 0; attempt < d.cfg.MaxConflictRetry; attempt++ {
		next := ApplyMiss(cur, idx, now)
		err := d.store.RecordMissed(ctx, next, &notification.LogEntry{
			ChallengeID: cur.ID,
			Type:        notification.TypeMissed,
			DedupKey:    &key,
			SentAt:      now,
			Payload:     missedPayload(next, idx),
		})
		switch {
		case err == nil:
			notificationsTotal.WithLabelValues(string(notification.TypeMissed), "sent").Inc()
			return next, true, nil
		case errors.Is(err, storage.ErrDuplicate):
			notificationsTotal.WithLabelValues(string(notification.TypeMissed), "deduplicated").Inc()
			return cur, false, nil
		case errors.Is(err, storage.ErrVersionConflict):
			fresh, err := d.store.GetChallenge(ctx, cur.ID)
			if err != nil {
				return cur, false, err
			}
			cur = fresh
			if s := cur.Schedule[idx]; s.Uploaded && s.OnTime {
				return cur, false, nil
			}
		default:
			return cur, false, err
		}
	}
	return cur, false, apperr.Storage("record missed", storage.ErrVersionConflict)
}

func missedPayload(ch *challenge.Challenge, idx int) map[string]any {
	return map[string]any{
		"title":       ch.Title,
		"slot":        idx + 1,
		"deadline":    ch.Schedule[idx].Deadline().Format("Jan 2 15:04 MST"),
		"missed_days": ch.MissedDays,
	}
}

// NotifyWelcome greets the owner of a newly created challenge.
func (d *NotificationDispatcher) NotifyWelcome(ctx context.Context, ch *challenge.Challenge, now time.Time) {
	data := map[string]any{
		"title":        ch.Title,
		"slots":        len(ch.Schedule),
		"cadence_days": ch.CadenceDays,
		"deadline":     "",
	}
	if ch.NextDeadline != nil {
		data["deadline"] = ch.NextDeadline.Format("Jan 2 15:04 MST")
	}
	if _, err := d.Emit(ctx, ch, notification.TypeWelcome, "welcome", data, now); err != nil {
		d.logger.Error("failed to log welcome notification", zap.String("challenge_id", ch.ID.String()), zap.Error(err))
	}
}

// NotifyUpload emits everything a recorded upload can trigger: the upload itself,
// a crossed streak milestone, completion and unlocked achievements.
func (d *NotificationDispatcher) NotifyUpload(ctx context.Context, ch *challenge.Challenge, rec *upload.Record, change LedgerChange, unlocked []*achievement.Record, now time.Time) {
	type event struct {
		t    notification.NotificationType
		key  string
		data map[string]any
	}

	events := []event{{
		t:   notification.TypeUploadSuccess,
		key: "upload:" + rec.VideoID,
		data: map[string]any{
			"title":       ch.Title,
			"video_title": rec.Title,
			"video_id":    rec.VideoID,
			"points":      rec.PointsEarned,
			"on_time":     rec.OnTime,
		},
	}}

	for _, m := range streakMilestones {
		if change.PrevStreak < m && ch.StreakCount >= m {
			events = append(events, event{
				t:    notification.TypeStreak,
				key:  fmt.Sprintf("streak:%d", m),
				data: map[string]any{"title": ch.Title, "streak": m},
			})
		}
	}

	if change.Completed {
		events = append(events, event{
			t:   notification.TypeCompletion,
			key: "completion",
			data: map[string]any{
				"title":          ch.Title,
				"points":         ch.PointsEarned,
				"longest_streak": ch.LongestStreak,
				"bonus":          change.CompletionBonus,
			},
		})
	}

	for _, a := range unlocked {
		events = append(events, event{
			t:   notification.TypeAchievementUnlocked,
			key: "achievement:" + string(a.Type),
			data: map[string]any{
				"title":       ch.Title,
				"achievement": a.Title,
				"description": a.Description,
				"points":      a.Points,
			},
		})
	}

	for _, e := range events {
		if _, err := d.Emit(ctx, ch, e.t, e.key, e.data, now); err != nil {
			d.logger.Error("failed to log notification",
				zap.String("challenge_id", ch.ID.String()),
				zap.String("type", string(e.t)),
				zap.Error(err),
			)
		}
	}
}
