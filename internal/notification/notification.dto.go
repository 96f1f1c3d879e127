package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type NotificationListResponse struct {
	Notifications []*InboxItem `json:"notifications"`
	UnreadCount   int          `json:"unread_count"`
	TotalCount    int          `json:"total_count"`
	Page          int          `json:"page"`
	PageSize      int          `json:"page_size"`
}

type MarkReadRequest struct {
	IDs []string `json:"ids"`
}
