package videoplatform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/channel"
	"creatorChallengeAPI/utils"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	maxBatch      = 50
	maxPlaylistPg = 4
)

// TokenSaver persists OAuth tokens refreshed while talking to the platform.
type TokenSaver interface {
	SaveChannelToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
}

type YouTubeConfig struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string
	APIKey            string
	Timeout           time.Duration
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
	// Endpoint overrides the API base URL.
	Endpoint string
}

type cachedVideo struct {
	video     Video
	fetchedAt time.Time
}

// YouTubeClient implements Platform over the YouTube Data API. Calls go out with the
// channel owner's OAuth token first and fall back once to the API key.
type YouTubeClient struct {
	oauth    *oauth2.Config
	apiKey   string
	endpoint string
	tokens   TokenSaver
	cache    *lru.Cache
	cacheTTL time.Duration
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

func NewYouTubeClient(cfg YouTubeConfig, tokens TokenSaver, logger *zap.Logger) (*YouTubeClient, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create video cache: %w", err)
	}

	return &YouTubeClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: googleAuthURL, TokenURL: cfg.TokenURL},
			Scopes:       []string{youtube.YoutubeReadonlyScope},
		},
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		tokens:   tokens,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

func (c *YouTubeClient) GetVideo(ctx context.Context, conn *channel.Connection, videoID string) (*Video, error) {
	if v, ok := c.cached(videoID); ok {
		return v, nil
	}

	videos, err := c.fetchVideos(ctx, conn, []string{videoID})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, apperr.NotFound("video %s", videoID)
	}
	return &videos[0], nil
}

func (c *YouTubeClient) ListRecentUploads(ctx context.Context, conn *channel.Connection, since time.Time) ([]Video, error) {
	var ids []string
	err := c.withFailover(ctx, conn, "list uploads", func(ctx context.Context, svc *youtube.Service) error {
		ids = ids[:0]
		playlistID, err := c.uploadsPlaylist(ctx, svc, conn.ChannelID)
		if err != nil {
			return err
		}

		pageToken := ""
		truncated := false
		for page := 0; page < maxPlaylistPg; page++ {
			call := svc.PlaylistItems.List([]string{"contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(maxBatch).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			resp, err := call.Do()
			if err != nil {
				return err
			}

			reachedOld := false
			for _, item := range resp.Items {
				if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
					continue
				}
				published, err := time.Parse(time.RFC3339, item.ContentDetails.VideoPublishedAt)
				if err == nil && published.Before(since) {
					reachedOld = true
					continue
				}
				ids = append(ids, item.ContentDetails.VideoId)
			}

			// the uploads playlist is newest first
			if reachedOld || resp.NextPageToken == "" {
				break
			}
			pageToken = resp.NextPageToken
			truncated = page == maxPlaylistPg-1
		}
		if truncated {
			c.logger.Warn("uploads playlist truncated, older videos in the window were not listed",
				zap.String("channel_id", conn.ChannelID),
				zap.Time("since", since),
				zap.Int("listed", len(ids)),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Video
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		batch, err := c.fetchVideos(ctx, conn, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range batch {
			if !v.PublishedAt.Before(since) {
				out = append(out, v)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out, nil
}

func (c *YouTubeClient) uploadsPlaylist(ctx context.Context, svc *youtube.Service, channelID string) (string, error) {
	key := "uploads:" + channelID
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}

	resp, err := svc.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil || resp.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", apperr.NotFound("channel %s", channelID)
	}
	id := resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	c.cache.Add(key, id)
	return id, nil
}

func (c *YouTubeClient) fetchVideos(ctx context.Context, conn *channel.Connection, ids []string) ([]Video, error) {
	var out []Video
	err := c.withFailover(ctx, conn, "get videos", func(ctx context.Context, svc *youtube.Service) error {
		resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).Id(ids...).Context(ctx).Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range resp.Items {
			v := toVideo(item)
			c.cache.Add("video:"+v.ID, cachedVideo{video: v, fetchedAt: time.Now()})
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (c *YouTubeClient) cached(videoID string) (*Video, bool) {
	raw, ok := c.cache.Get("video:" + videoID)
	if !ok {
		return nil, false
	}
	cv := raw.(cachedVideo)
	if c.cacheTTL > 0 && time.Since(cv.fetchedAt) > c.cacheTTL {
		c.cache.Remove("video:" + videoID)
		return nil, false
	}
	v := cv.video
	return &v, true
}

// withFailover runs fn with the OAuth-backed service and, if that fails, once more
// with the API-key service. Each attempt gets its own timeout.
func (c *YouTubeClient) withFailover(ctx context.Context, conn *channel.Connection, op string, fn func(context.Context, *youtube.Service) error) error {
	type attempt struct {
		name string
		svc  func(context.Context) (*youtube.Service, error)
	}

	var attempts []attempt
	if conn != nil && (conn.AccessToken != "" || conn.RefreshToken != "") {
		attempts = append(attempts, attempt{"oauth", func(ctx context.Context) (*youtube.Service, error) {
			return c.oauthService(ctx, conn)
		}})
	}
	if c.apiKey != "" {
		attempts = append(attempts, attempt{"api_key", c.keyService})
	}
	if len(attempts) == 0 {
		return apperr.External("youtube", errors.New("no credentials for channel"))
	}

	var lastErr error
	for _, a := range attempts {
		err := c.try(ctx, a.svc, fn)
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			if errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			return apperr.NotFound("youtube %s: %v", op, err)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("youtube call failed",
			zap.String("op", op),
			zap.String("credentials", a.name),
			zap.Error(err),
		)
	}
	return apperr.External("youtube "+op, lastErr)
}

func (c *YouTubeClient) try(ctx context.Context, newSvc func(context.Context) (*youtube.Service, error), fn func(context.Context, *youtube.Service) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	svc, err := newSvc(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func (c *YouTubeClient) options(extra ...option.ClientOption) []option.ClientOption {
	if c.endpoint != "" {
		extra = append(extra, option.WithEndpoint(c.endpoint))
	}
	return extra
}

func (c *YouTubeClient) keyService(ctx context.Context) (*youtube.Service, error) {
	return youtube.NewService(ctx, c.options(option.WithAPIKey(c.apiKey))...)
}

// oauthService binds token refreshes to ctx, so they share the attempt's timeout.
func (c *YouTubeClient) oauthService(ctx context.Context, conn *channel.Connection) (*youtube.Service, error) {
	ts := &persistingTokenSource{
		base:   c.oauth.TokenSource(ctx, conn.Token()),
		userID: conn.UserID,
		saver:  c.tokens,
		last:   conn.AccessToken,
		logger: c.logger,
	}
	return youtube.NewService(ctx, c.options(option.WithTokenSource(ts))...)
}

func isNotFound(err error) bool {
	if errors.Is(err, apperr.ErrNotFound) {
		return true
	}
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}

func toVideo(item *youtube.Video) Video {
	v := Video{ID: item.Id, URL: WatchURL(item.Id)}
	if item.Snippet != nil {
		v.ChannelID = item.Snippet.ChannelId
		v.Title = item.Snippet.Title
		v.PublishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	}
	if item.Statistics != nil {
		v.Stats = Stats{
			Views:    int64(item.Statistics.ViewCount),
			Likes:    int64(item.Statistics.LikeCount),
			Comments: int64(item.Statistics.CommentCount),
		}
	}
	if item.ContentDetails != nil {
		v.Duration = utils.ParseISODuration(item.ContentDetails.Duration)
	}
	return v
}

// persistingTokenSource hands out tokens from base and writes any newly refreshed
// access token back through saver.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	userID uuid.UUID
	saver  TokenSaver
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	changed := tok.AccessToken != p.last
	p.last = tok.AccessToken
	p.mu.Unlock()

	if changed && p.saver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.saver.SaveChannelToken(ctx, p.userID, tok); err != nil {
			p.logger.Error("failed to persist refreshed channel token",
				zap.String("user_id", p.userID.String()),
				zap.Error(err),
			)
		}
	}
	return tok, nil
}

var _ Platform = (*YouTubeClient)(nil)
