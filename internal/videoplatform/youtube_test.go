package videoplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/channel"
)

type fakeAPI struct {
	calls       atomic.Int32
	rejectOAuth bool
	rejectKey   bool
	videos      map[string]string
	playlist    []string
	morePages   bool
	pageCalls   atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	hasBearer := strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
	hasKey := r.URL.Query().Get("key") != ""
	if (hasBearer && f.rejectOAuth) || (hasKey && f.rejectKey) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/channels"):
		fmt.Fprint(w, `{"items":[{"id":"UC1","contentDetails":{"relatedPlaylists":{"uploads":"UU1"}}}]}`)
	case strings.HasSuffix(r.URL.Path, "/playlistItems"):
		f.pageCalls.Add(1)
		next := ""
		if f.morePages {
			next = fmt.Sprintf(`,"nextPageToken":"page%d"`, f.pageCalls.Load())
		}
		fmt.Fprintf(w, `{"items":[%s]%s}`, strings.Join(f.playlist, ","), next)
	case strings.HasSuffix(r.URL.Path, "/videos"):
		var items []string
		for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			if v, ok := f.videos[id]; ok {
				items = append(items, v)
			}
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func videoJSON(id, published string) string {
	return fmt.Sprintf(`{"id":%q,"snippet":{"channelId":"UC1","title":"Video %s","publishedAt":%q},`+
		`"statistics":{"viewCount":"42","likeCount":"3","commentCount":"1"},"contentDetails":{"duration":"PT1M30S"}}`,
		id, id, published)
}

func playlistJSON(id, published string) string {
	return fmt.Sprintf(`{"contentDetails":{"videoId":%q,"videoPublishedAt":%q}}`, id, published)
}

type recordingSaver struct {
	mu     sync.Mutex
	tokens []*oauth2.Token
}

func (r *recordingSaver) SaveChannelToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, tok)
	return nil
}

func newTestClient(t *testing.T, api http.Handler, cfg YouTubeConfig, saver TokenSaver) *YouTubeClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL + "/"
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	c, err := NewYouTubeClient(cfg, saver, zap.NewNop())
	require.NoError(t, err)
	return c
}

func liveConn() *channel.Connection {
	return &channel.Connection{
		UserID:      uuid.New(),
		ChannelID:   "UC1",
		AccessToken: "access",
		TokenExpiry: time.Now().Add(time.Hour),
	}
}

func TestGetVideo_FailsOverToAPIKeyAndCaches(t *testing.T) {
	api := &fakeAPI{
		rejectOAuth: true,
		videos:      map[string]string{"abcdefghijk": videoJSON("abcdefghijk", "2026-03-01T10:00:00Z")},
	}
	c := newTestClient(t, api, YouTubeConfig{APIKey: "key", CacheTTL: time.Minute}, nil)

	v, err := c.GetVideo(context.Background(), liveConn(), "abcdefghijk")
	require.NoError(t, err)
	assert.Equal(t, "UC1", v.ChannelID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), v.PublishedAt.UTC())
	assert.Equal(t, Stats{Views: 42, Likes: 3, Comments: 1}, v.Stats)
	assert.Equal(t, 90*time.Second, v.Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghijk", v.URL)
	assert.EqualValues(t, 2, api.calls.Load())

	_, err = c.GetVideo(context.Background(), liveConn(), "abcdefghijk")
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestGetVideo_Errors(t *testing.T) {
	api := &fakeAPI{videos: map[string]string{}}
	c := newTestClient(t, api, YouTubeConfig{APIKey: "key"}, nil)

	_, err := c.GetVideo(context.Background(), liveConn(), "missing0000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	api.rejectOAuth, api.rejectKey = true, true
	_, err = c.GetVideo(context.Background(), liveConn(), "other000000")
	assert.ErrorIs(t, err, apperr.ErrExternalService)

	noCreds := newTestClient(t, api, YouTubeConfig{}, nil)
	_, err = noCreds.GetVideo(context.Background(), &channel.Connection{ChannelID: "UC1"}, "x")
	assert.ErrorIs(t, err, apperr.ErrExternalService)
}

func TestListRecentUploads(t *testing.T) {
	api := &fakeAPI{
		playlist: []string{
			playlistJSON("newest00000", "2026-03-03T09:00:00Z"),
			playlistJSON("middle00000", "2026-03-02T09:00:00Z"),
			playlistJSON("tooold00000", "2026-02-20T09:00:00Z"),
		},
		videos: map[string]string{
			"newest00000": videoJSON("newest00000", "2026-03-03T09:00:00Z"),
			"middle00000": videoJSON("middle00000", "2026-03-02T09:00:00Z"),
			"tooold00000": videoJSON("tooold00000", "2026-02-20T09:00:00Z"),
		},
	}
	c := newTestClient(t, api, YouTubeConfig{}, nil)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	videos, err := c.ListRecentUploads(context.Background(), liveConn(), since)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "middle00000", videos[0].ID)
	assert.Equal(t, "newest00000", videos[1].ID)
}

func TestOAuthRefreshPersistsToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	api := &fakeAPI{videos: map[string]string{"abcdefghijk": videoJSON("abcdefghijk", "2026-03-01T10:00:00Z")}}
	saver := &recordingSaver{}
	c := newTestClient(t, api, YouTubeConfig{ClientID: "id", ClientSecret: "secret", TokenURL: tokenSrv.URL}, saver)

	conn := &channel.Connection{
		UserID:       uuid.New(),
		ChannelID:    "UC1",
		AccessToken:  "stale",
		RefreshToken: "refresh",
		TokenExpiry:  time.Now().Add(-time.Hour),
	}
	_, err := c.GetVideo(context.Background(), conn, "abcdefghijk")
	require.NoError(t, err)

	saver.mu.Lock()
	defer saver.mu.Unlock()
	require.Len(t, saver.tokens, 1)
	assert.Equal(t, "fresh", saver.tokens[0].AccessToken)
}

func TestListRecentUploads_WarnsWhenPageCapIsHit(t *testing.T) {
	api := &fakeAPI{
		playlist:  []string{playlistJSON("newest00000", "2026-03-03T09:00:00Z")},
		videos:    map[string]string{"newest00000": videoJSON("newest00000", "2026-03-03T09:00:00Z")},
		morePages: true,
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c, err := NewYouTubeClient(YouTubeConfig{Endpoint: srv.URL + "/", RequestsPerSecond: 1000, Burst: 1000}, nil, zap.New(core))
	require.NoError(t, err)

	_, err = c.ListRecentUploads(context.Background(), liveConn(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, maxPlaylistPg, api.pageCalls.Load())

	warned := logs.FilterMessageSnippet("truncated").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "UC1", warned[0].ContextMap()["channel_id"])
}

func TestOAuthRefreshHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer tokenSrv.Close()
	defer close(release)

	api := &fakeAPI{videos: map[string]string{}}
	c := newTestClient(t, api, YouTubeConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     tokenSrv.URL,
		Timeout:      100 * time.Millisecond,
	}, &recordingSaver{})

	conn := &channel.Connection{
		UserID:       uuid.New(),
		ChannelID:    "UC1",
		AccessToken:  "stale",
		RefreshToken: "refresh",
		TokenExpiry:  time.Now().Add(-time.Hour),
	}

	started := time.Now()
	_, err := c.GetVideo(context.Background(), conn, "abcdefghijk")
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Zero(t, api.calls.Load())
}
