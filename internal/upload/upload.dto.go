package upload

type SubmitUploadRequest struct {
	// Video is a watch URL, a short link or a bare video id.
	Video string `json:"video" validate:"required"`
}

type SubmitUploadResponse struct {
	Status       string   `json:"status"`
	Upload       *Record  `json:"upload,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Message      string   `json:"message"`
}
