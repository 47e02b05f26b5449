package generatedresumes

import "time"

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is one generation attempt that reached the AI response stage.
// Records are written once and never updated. UserID is empty for anonymous
// generations.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	UserEmail    string    `json:"userEmail,omitempty"`
	JobTitle     string    `json:"jobTitle"`
	CompanyName  string    `json:"companyName"`
	MatchScore   int       `json:"matchScore"`
	OriginalName string    `json:"originalName"`
	FileName     string    `json:"fileName"`
	Status       Status    `json:"status"`
	StorageKey   string    `json:"-"`
	SizeBytes    int64     `json:"sizeBytes"`
	MimeType     string    `json:"mimeType"`
	Warnings     []string  `json:"warnings,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
