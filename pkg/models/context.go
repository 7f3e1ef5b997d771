package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

// Context is a saved, reusable bundle of style facets plus the prompt fragment
// derived from them.
type Context struct {
	ID             uuid.UUID      `json:"id"`
	UserID         string         `json:"userId"`
	Name           string         `json:"name"`
	StructuredData StructuredData `json:"structuredData"`
	AIPromptBlock  string         `json:"aiPromptBlock"`
	Tags           []string       `json:"tags"`
	Model          *string        `json:"model"`
	AspectRatio    *string        `json:"aspectRatio"`
	UsageCount     int            `json:"usageCount"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ContextInput is the full payload accepted by POST /api/contexts/save.
type ContextInput struct {
	Name           string         `json:"name"`
	StructuredData StructuredData `json:"structuredData"`
	AIPromptBlock  string         `json:"aiPromptBlock"`
	Tags           []string       `json:"tags"`
	Model          *string        `json:"model,omitempty"`
	AspectRatio    *string        `json:"aspectRatio,omitempty"`
}

// Validate normalizes the input in place and reports the first problem found.
func (in *ContextInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.NewValidationError("name", "is required")
	}
	if err := in.StructuredData.Validate(); err != nil {
		return err
	}
	in.AIPromptBlock = strings.TrimSpace(in.AIPromptBlock)
	if in.AIPromptBlock == "" {
		return apperrors.NewValidationError("aiPromptBlock", "is required")
	}
	if in.Tags == nil {
		return apperrors.NewValidationError("tags", "is required")
	}
	in.Tags = NormalizeTags(in.Tags)
	return nil
}

// ContextPatch carries the fields of a partial update. Nil means "not supplied".
type ContextPatch struct {
	Name           *string        `json:"name,omitempty"`
	StructuredData StructuredData `json:"structuredData,omitempty"`
	AIPromptBlock  *string        `json:"aiPromptBlock,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Model          *string        `json:"model,omitempty"`
	AspectRatio    *string        `json:"aspectRatio,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (p *ContextPatch) IsEmpty() bool {
	return p.Name == nil && p.StructuredData == nil && p.AIPromptBlock == nil &&
		p.Tags == nil && p.Model == nil && p.AspectRatio == nil
}

// Validate applies the create rules to the supplied fields only.
func (p *ContextPatch) Validate() error {
	if p.IsEmpty() {
		return apperrors.NewValidationError("", "no fields to update")
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return apperrors.NewValidationError("name", "must not be empty")
		}
		p.Name = &name
	}
	if p.StructuredData != nil {
		if err := p.StructuredData.Validate(); err != nil {
			return err
		}
	}
	if p.AIPromptBlock != nil {
		block := strings.TrimSpace(*p.AIPromptBlock)
		if block == "" {
			return apperrors.NewValidationError("aiPromptBlock", "must not be empty")
		}
		p.AIPromptBlock = &block
	}
	if p.Tags != nil {
		p.Tags = NormalizeTags(p.Tags)
	}
	return nil
}

// ExtractedContext is the unsaved preview produced from a reference image.
type ExtractedContext struct {
	Name           string         `json:"name"`
	StructuredData StructuredData `json:"structuredData"`
	AIPromptBlock  string         `json:"aiPromptBlock"`
	Tags           []string       `json:"tags"`
}

// Validate runs the same checks as a save payload.
func (e *ExtractedContext) Validate() error {
	in := ContextInput{
		Name:           e.Name,
		StructuredData: e.StructuredData,
		AIPromptBlock:  e.AIPromptBlock,
		Tags:           e.Tags,
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if err := in.Validate(); err != nil {
		return err
	}
	e.Name, e.AIPromptBlock, e.Tags = in.Name, in.AIPromptBlock, in.Tags
	return nil
}

// NormalizeTags trims entries and drops empty ones, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ContextSortField is a column the context listing may be ordered by.
type ContextSortField string

const (
	ContextSortCreatedAt  ContextSortField = "createdAt"
	ContextSortName       ContextSortField = "name"
	ContextSortUsageCount ContextSortField = "usageCount"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ContextListQuery is the validated form of GET /api/contexts parameters.
type ContextListQuery struct {
	Page      int
	Limit     int
	SortBy    ContextSortField
	SortOrder SortOrder
	Search    string
	Tags      []string
}

// Offset returns the row offset of the requested page.
func (q ContextListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
