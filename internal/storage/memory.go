package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/channel"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/user"
)

type uploadKey struct {
	challengeID uuid.UUID
	videoID     string
}

type achievementKey struct {
	userID      uuid.UUID
	challengeID uuid.UUID
	t           achievement.Type
}

// MemoryStore keeps everything in process. It enforces the same constraints as the
// Postgres schema and is used by tests and by `serve --in-memory`.
type MemoryStore struct {
	mu sync.Mutex

	challenges   map[uuid.UUID]*challenge.Challenge
	uploads      map[uploadKey]*upload.Record
	achievements map[achievementKey]*achievement.Record
	notifLog     []*notification.LogEntry
	inbox        []*notification.InboxItem
	users        map[uuid.UUID]*user.User
	channels     map[uuid.UUID]*channel.Connection
	devices      map[uuid.UUID][]notification.DeviceToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges:   make(map[uuid.UUID]*challenge.Challenge),
		uploads:      make(map[uploadKey]*upload.Record),
		achievements: make(map[achievementKey]*achievement.Record),
		users:        make(map[uuid.UUID]*user.User),
		channels:     make(map[uuid.UUID]*channel.Connection),
		devices:      make(map[uuid.UUID][]notification.DeviceToken),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// PutUser and PutChannelConnection stand in for the owning application's writes.
func (m *MemoryStore) PutUser(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *MemoryStore) PutChannelConnection(c *channel.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.channels[c.UserID] = &cp
}

func (m *MemoryStore) CreateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if _, exists := m.challenges[ch.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now()
	ch.CreatedAt, ch.UpdatedAt = now, now
	ch.Version = 1
	m.challenges[ch.ID] = ch.Clone()
	return nil
}

func (m *MemoryStore) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.challenges[id]
	if !ok {
		return nil, apperr.NotFound("challenge %s", id)
	}
	return ch.Clone(), nil
}

func (m *MemoryStore) ListChallengesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*challenge.Challenge, error) {
	return m.listChallenges(func(c *challenge.Challenge) bool {
		return c.OwnerID == ownerID && c.Status != challenge.StatusDeleted
	}), nil
}

func (m *MemoryStore) ListActiveChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	return m.listChallenges(func(c *challenge.Challenge) bool {
		return c.Status == challenge.StatusActive
	}), nil
}

func (m *MemoryStore) listChallenges(keep func(*challenge.Challenge) bool) []*challenge.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*challenge.Challenge
	for _, c := range m.challenges {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryStore) UpdateChallenge(ctx context.Context, ch *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeChallengeLocked(ch)
}

func (m *MemoryStore) writeChallengeLocked(ch *challenge.Challenge) error {
	cur, ok := m.challenges[ch.ID]
	if !ok {
		return apperr.NotFound("challenge %s", ch.ID)
	}
	if cur.Version != ch.Version {
		return ErrVersionConflict
	}
	ch.Version++
	ch.UpdatedAt = time.Now()
	m.challenges[ch.ID] = ch.Clone()
	return nil
}

func (m *MemoryStore) UploadExists(ctx context.Context, challengeID uuid.UUID, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.uploads[uploadKey{challengeID, videoID}]
	return ok, nil
}

func (m *MemoryStore) RecordUpload(ctx context.Context, ch *challenge.Challenge, rec *upload.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := uploadKey{rec.ChallengeID, rec.VideoID}
	if _, ok := m.uploads[key]; ok {
		return ErrDuplicate
	}
	if err := m.writeChallengeLocked(ch); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	cp := *rec
	m.uploads[key] = &cp
	return nil
}

func (m *MemoryStore) ListUploads(ctx context.Context, challengeID uuid.UUID) ([]*upload.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*upload.Record
	for k, r := range m.uploads {
		if k.challengeID == challengeID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out, nil
}

func (m *MemoryStore) ListAchievements(ctx context.Context, challengeID uuid.UUID) ([]*achievement.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*achievement.Record
	for k, r := range m.achievements {
		if k.challengeID == challengeID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

func (m *MemoryStore) UnlockAchievement(ctx context.Context, rec *achievement.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := achievementKey{rec.UserID, rec.ChallengeID, rec.Type}
	if _, ok := m.achievements[key]; ok {
		return ErrDuplicate
	}
	ch, ok := m.challenges[rec.ChallengeID]
	if !ok {
		return apperr.NotFound("challenge %s", rec.ChallengeID)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = time.Now()
	}
	cp := *rec
	m.achievements[key] = &cp
	ch.PointsEarned += rec.Points
	ch.Version++
	ch.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) InsertNotificationLog(ctx context.Context, e *notification.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLogLocked(e)
}

func (m *MemoryStore) insertLogLocked(e *notification.LogEntry) error {
	for _, x := range m.notifLog {
		if x.ChallengeID != e.ChallengeID || x.Type != e.Type {
			continue
		}
		if e.DedupKey != nil && x.DedupKey != nil && *x.DedupKey == *e.DedupKey {
			return ErrDuplicate
		}
		// half-open ranges, matching tstzrange '[)'
		if e.DedupUntil != nil && x.DedupUntil != nil &&
			e.SentAt.Before(*x.DedupUntil) && x.SentAt.Before(*e.DedupUntil) {
			return ErrDuplicate
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.notifLog = append(m.notifLog, &cp)
	return nil
}

func (m *MemoryStore) RecordMissed(ctx context.Context, ch *challenge.Challenge, e *notification.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.challenges[ch.ID]
	if !ok {
		return apperr.NotFound("challenge %s", ch.ID)
	}
	if cur.Version != ch.Version {
		return ErrVersionConflict
	}
	if err := m.insertLogLocked(e); err != nil {
		return err
	}
	return m.writeChallengeLocked(ch)
}

func (m *MemoryStore) LastNotification(ctx context.Context, challengeID uuid.UUID, t notification.NotificationType) (*notification.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last *notification.LogEntry
	for _, e := range m.notifLog {
		if e.ChallengeID == challengeID && e.Type == t && (last == nil || e.SentAt.After(last.SentAt)) {
			last = e
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (m *MemoryStore) ListNotificationLog(ctx context.Context, challengeID uuid.UUID) ([]*notification.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*notification.LogEntry
	for _, e := range m.notifLog {
		if e.ChallengeID == challengeID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (m *MemoryStore) AppendInbox(ctx context.Context, item *notification.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	cp := *item
	m.inbox = append(m.inbox, &cp)
	return nil
}

func (m *MemoryStore) ListInbox(ctx context.Context, f notification.InboxFilter) ([]*notification.InboxItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*notification.InboxItem
	for i := len(m.inbox) - 1; i >= 0; i-- {
		it := m.inbox[i]
		if it.UserID != f.UserID || (f.UnreadOnly && it.ReadAt != nil) {
			continue
		}
		cp := *it
		matched = append(matched, &cp)
	}

	total := len(matched)
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, it := range m.inbox {
		if it.UserID == userID && it.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	now := time.Now()
	n := 0
	for _, it := range m.inbox {
		if it.UserID == userID && it.ReadAt == nil && want[it.ID] {
			it.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, it := range m.inbox {
		if it.UserID == userID && it.ReadAt == nil {
			it.ReadAt = &now
		}
	}
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s", id)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ClerkID == clerkID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user for clerk_id %s", clerkID)
}

func (m *MemoryStore) UpsertUser(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.ClerkID == u.ClerkID {
			existing.Email = u.Email
			existing.DisplayName = u.DisplayName
			u.ID = existing.ID
			u.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) GetChannelConnection(ctx context.Context, userID uuid.UUID) (*channel.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[userID]
	if !ok {
		return nil, apperr.NotFound("channel connection for user %s", userID)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) SaveChannelToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[userID]
	if !ok {
		return apperr.NotFound("channel connection for user %s", userID)
	}
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.TokenExpiry = tok.Expiry
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.DeviceToken(nil), m.devices[userID]...), nil
}

func (m *MemoryStore) RegisterDevice(ctx context.Context, userID uuid.UUID, tok notification.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.devices[userID] {
		if t.Token == tok.Token {
			m.devices[userID][i].LastUsed = tok.LastUsed
			m.devices[userID][i].Platform = tok.Platform
			return nil
		}
	}
	m.devices[userID] = append(m.devices[userID], tok)
	return nil
}
