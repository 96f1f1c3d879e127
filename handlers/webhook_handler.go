package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/user"
	"creatorChallengeAPI/services"
)

const webhookTolerance = 5 * time.Minute

type clerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type clerkUserData struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (d *clerkUserData) primaryEmail() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

// WebhookHandler receives Clerk user events and mirrors them into the owner directory.
type WebhookHandler struct {
	userService *services.UserService
	secret      []byte
	logger      *zap.Logger
	now         func() time.Time
}

// NewWebhookHandler takes the signing secret as shown in the Clerk dashboard,
// with or without the whsec_ prefix. An undecodable or empty secret rejects
// every delivery.
func NewWebhookHandler(userService *services.UserService, secret string, logger *zap.Logger) *WebhookHandler {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		logger.Error("invalid clerk webhook secret", zap.Error(err))
		key = nil
	}
	return &WebhookHandler{
		userService: userService,
		secret:      key,
		logger:      logger,
		now:         time.Now,
	}
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if !h.verifySignature(r.Header, body) {
		h.logger.Warn("rejected clerk webhook", zap.String("svix_id", r.Header.Get("svix-id")))
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		var data clerkUserData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			respondWithError(w, http.StatusBadRequest, "Error parsing user data")
			return
		}
		_, err := h.userService.SyncUser(r.Context(), &user.SyncRequest{
			ClerkID:   data.ID,
			Email:     data.primaryEmail(),
			Username:  data.Username,
			FirstName: data.FirstName,
			LastName:  data.LastName,
		})
		if err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
	default:
		h.logger.Debug("unhandled webhook event", zap.String("type", event.Type))
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// verifySignature checks the svix headers: base64 HMAC-SHA256 over
// "id.timestamp.body", any of several space separated "v1,<sig>" entries.
func (h *WebhookHandler) verifySignature(header http.Header, body []byte) bool {
	if len(h.secret) == 0 {
		return false
	}

	msgID := header.Get("svix-id")
	timestamp := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	sent := time.Unix(ts, 0)
	if d := h.now().Sub(sent); d > webhookTolerance || d < -webhookTolerance {
		return false
	}

	expected := signWebhook(h.secret, msgID, timestamp, body)
	for _, sig := range strings.Fields(signatures) {
		version, value, ok := strings.Cut(sig, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(value), []byte(expected)) {
			return true
		}
	}
	return false
}

func signWebhook(key []byte, msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
