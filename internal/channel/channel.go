package channel

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Connection is a user's linked video channel plus the OAuth credentials used to
// read it.
type Connection struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	ChannelID    string    `json:"channel_id" db:"channel_id"`
	ChannelTitle string    `json:"channel_title" db:"channel_title"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	TokenExpiry  time.Time `json:"-" db:"token_expiry"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Connection) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.TokenExpiry,
	}
}
