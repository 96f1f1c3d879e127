package challenge

import "time"

type CreateChallengeRequest struct {
	Title              string     `json:"title" validate:"required"`
	CadenceDays        int        `json:"cadence_days" validate:"required"`
	VideosPerCadence   int        `json:"videos_per_cadence"`
	DurationDays       int        `json:"duration_days,omitempty"`
	DurationMonths     int        `json:"duration_months,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EmailNotifications *bool      `json:"email_notifications,omitempty"`
}

type UpdateChallengeRequest struct {
	Title              *string `json:"title,omitempty"`
	Status             *Status `json:"status,omitempty"`
	EmailNotifications *bool   `json:"email_notifications,omitempty"`
}

type ChallengeListResponse struct {
	Challenges []*Challenge `json:"challenges"`
	TotalCount int          `json:"total_count"`
}
