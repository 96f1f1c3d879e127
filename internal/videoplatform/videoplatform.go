// Package videoplatform reads videos from the creator's connected channel.
package videoplatform

import (
	"context"
	"time"

	"creatorChallengeAPI/internal/channel"
)

type Stats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type Video struct {
	ID          string        `json:"id"`
	ChannelID   string        `json:"channel_id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	PublishedAt time.Time     `json:"published_at"`
	Stats       Stats         `json:"stats"`
	Duration    time.Duration `json:"duration"`
}

// Platform is the video provider as seen by the engine. Implementations must bound
// every call and report provider failures as apperr.ErrExternalService.
type Platform interface {
	GetVideo(ctx context.Context, conn *channel.Connection, videoID string) (*Video, error)
	// ListRecentUploads returns the channel's videos published at or after since,
	// oldest first.
	ListRecentUploads(ctx context.Context, conn *channel.Connection, since time.Time) ([]Video, error)
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
