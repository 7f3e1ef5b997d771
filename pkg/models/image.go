package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageStatus is the lifecycle state of a generation record.
type ImageStatus string

const (
	ImageStatusProcessing ImageStatus = "PROCESSING"
	ImageStatusCompleted  ImageStatus = "COMPLETED"
	ImageStatusFailed     ImageStatus = "FAILED"
)

// Metadata keys written on generation records.
const (
	MetaProviderAssetID      = "providerAssetId"
	MetaProviderTextResponse = "providerTextResponse"
	MetaUsedReferenceImage   = "usedReferenceImage"
	MetaSmartExpansion       = "smartExpansion"
	MetaRawPrompt            = "rawPrompt"
	MetaContextID            = "contextId"
	MetaError                = "error"
)

// Image is the audit/result row written for every generation attempt.
type Image struct {
	ID               uuid.UUID      `json:"id"`
	UserID           string         `json:"userId"`
	OriginalURL      string         `json:"originalUrl"`
	TransformedURL   *string        `json:"transformedUrl"`
	Prompt           string         `json:"prompt"`
	ModelUsed        string         `json:"modelUsed"`
	Status           ImageStatus    `json:"status"`
	ProcessingTimeMs *int           `json:"processingTimeMs"`
	Metadata         map[string]any `json:"metadata"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// ProviderAssetID returns the storage id recorded at generation time.
func (i *Image) ProviderAssetID() string {
	id, _ := i.Metadata[MetaProviderAssetID].(string)
	return id
}

// PublicProfile is the subset of a user shown next to public images.
type PublicProfile struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// ExploreImage is a completed image as listed on the public explore feed.
type ExploreImage struct {
	ID               uuid.UUID     `json:"id"`
	OriginalURL      string        `json:"originalUrl"`
	TransformedURL   *string       `json:"transformedUrl"`
	Prompt           string        `json:"prompt"`
	ModelUsed        string        `json:"modelUsed"`
	ProcessingTimeMs *int          `json:"processingTimeMs"`
	CreatedAt        time.Time     `json:"createdAt"`
	User             PublicProfile `json:"user"`
}

// ExploreQuery is the normalized form of GET /api/images/explore parameters.
type ExploreQuery struct {
	Limit  int
	Cursor *time.Time
	Search string
}

// ImageListQuery pages through one user's own history.
type ImageListQuery struct {
	Page  int
	Limit int
}

// Offset returns the row offset of the requested page.
func (q ImageListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ExplorePage is one page of the public explore feed.
type ExplorePage = Page[*ExploreImage, CursorMeta]
