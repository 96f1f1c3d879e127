package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the identity the owning application supplies for a challenge owner.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ClerkID     string    `json:"clerk_id" db:"clerk_id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SyncRequest carries the identity-provider fields the directory keeps.
type SyncRequest struct {
	ClerkID   string `json:"clerk_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName prefers the username and falls back to the full name.
func (r *SyncRequest) DisplayName() string {
	if r.Username != "" {
		return r.Username
	}
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}
