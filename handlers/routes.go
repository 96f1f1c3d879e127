package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"creatorChallengeAPI/middleware"
)

type Middleware = func(http.Handler) http.Handler

// Routes lists everything the HTTP surface is assembled from. Webhooks, Metrics,
// Pprof and RateLimit are optional.
type Routes struct {
	Challenges    *ChallengeHandler
	Uploads       *UploadHandler
	Notifications *NotificationHandler
	Cron          *CronHandler
	Health        *HealthHandler
	Users         *UserHandler
	Webhooks      *WebhookHandler

	Auth      Middleware
	CronAuth  Middleware
	RateLimit Middleware
	Metrics   http.Handler
	Pprof     http.Handler
}

func (rt Routes) Router() *mux.Router {
	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	if rt.RateLimit != nil {
		standardRouter.Use(rt.RateLimit)
	}
	standardRouter.Use(middleware.MonitorMiddleware)

	if rt.Metrics != nil {
		standardRouter.Handle("/metrics", rt.Metrics)
	}
	if rt.Pprof != nil {
		standardRouter.PathPrefix("/debug/pprof/").Handler(rt.Pprof)
	}
	standardRouter.HandleFunc("/health", rt.Health.Health).Methods("GET")

	if rt.Webhooks != nil {
		standardRouter.HandleFunc("/webhooks/clerk", rt.Webhooks.HandleClerkWebhook).Methods("POST")
	}

	internal := standardRouter.PathPrefix("/internal").Subrouter()
	internal.Use(rt.CronAuth)
	internal.HandleFunc("/cron/sweep", rt.Cron.Sweep).Methods("POST")

	protected := standardRouter.PathPrefix("/api/v1").Subrouter()
	protected.Use(rt.Auth)

	protected.HandleFunc("/me", rt.Users.GetProfile).Methods("GET")

	protected.HandleFunc("/challenges", rt.Challenges.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges", rt.Challenges.ListChallenges).Methods("GET")
	protected.HandleFunc("/challenges/{id}", rt.Challenges.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{id}", rt.Challenges.UpdateChallenge).Methods("PATCH")
	protected.HandleFunc("/challenges/{id}", rt.Challenges.DeleteChallenge).Methods("DELETE")
	protected.HandleFunc("/challenges/{id}/uploads", rt.Uploads.SubmitUpload).Methods("POST")
	protected.HandleFunc("/challenges/{id}/uploads", rt.Uploads.ListUploads).Methods("GET")
	protected.HandleFunc("/challenges/{id}/achievements", rt.Challenges.ListAchievements).Methods("GET")
	protected.HandleFunc("/challenges/{id}/notifications", rt.Challenges.ListNotificationLog).Methods("GET")

	protected.HandleFunc("/notifications", rt.Notifications.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", rt.Notifications.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", rt.Notifications.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}/read", rt.Notifications.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", rt.Notifications.RegisterDevice).Methods("POST")

	return r
}
