package models

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

// Facet keys of a context's structured data, in rendering order.
const (
	FacetSubject      = "subject"
	FacetEnvironment  = "environment"
	FacetLighting     = "lighting"
	FacetColorPalette = "colorPalette"
	FacetCamera       = "camera"
	FacetComposition  = "composition"
	FacetMood         = "mood"
	FacetStyle        = "style"
	FacetMaterials    = "materials"
	FacetEra          = "era"
	FacetRenderType   = "renderType"
)

// StructuredDataFacets lists the eleven facets every context must carry.
var StructuredDataFacets = []string{
	FacetSubject,
	FacetEnvironment,
	FacetLighting,
	FacetColorPalette,
	FacetCamera,
	FacetComposition,
	FacetMood,
	FacetStyle,
	FacetMaterials,
	FacetEra,
	FacetRenderType,
}

var facetLabels = map[string]string{
	FacetSubject:      "Subject",
	FacetEnvironment:  "Environment",
	FacetLighting:     "Lighting",
	FacetColorPalette: "Color palette",
	FacetCamera:       "Camera",
	FacetComposition:  "Composition",
	FacetMood:         "Mood",
	FacetStyle:        "Style",
	FacetMaterials:    "Materials",
	FacetEra:          "Era",
	FacetRenderType:   "Render type",
}

// StructuredData is the open style descriptor stored as JSONB. Unknown keys
// are kept as-is; only the eleven facets are checked.
type StructuredData map[string]any

// Validate checks that every facet is present, that colorPalette is a list of
// strings and that the remaining facets are strings.
func (s StructuredData) Validate() error {
	if s == nil {
		return apperrors.NewValidationError("structuredData", "is required")
	}

	for _, facet := range StructuredDataFacets {
		v, ok := s[facet]
		if !ok || v == nil {
			return apperrors.NewValidationError("structuredData."+facet, "is required")
		}

		if facet == FacetColorPalette {
			if _, ok := toStringSlice(v); !ok {
				return apperrors.NewValidationError("structuredData.colorPalette", "must be an array of strings")
			}
			continue
		}

		if _, ok := v.(string); !ok {
			return apperrors.NewValidationError("structuredData."+facet, "must be a string")
		}
	}
	return nil
}

// ColorPalette returns the palette entries, or nil when absent or malformed.
func (s StructuredData) ColorPalette() []string {
	palette, _ := toStringSlice(s[FacetColorPalette])
	return palette
}

// PromptText renders the facets as labelled lines, skipping empty ones.
// It is appended to generation prompts when a context is selected.
func (s StructuredData) PromptText() string {
	var b strings.Builder
	for _, facet := range StructuredDataFacets {
		var value string
		if facet == FacetColorPalette {
			value = strings.Join(s.ColorPalette(), ", ")
		} else {
			switch v := s[facet].(type) {
			case string:
				value = v
			case nil:
			default:
				value = fmt.Sprint(v)
			}
		}

		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(facetLabels[facet])
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}

// toStringSlice accepts both decoded JSON arrays ([]any) and []string.
func toStringSlice(v any) ([]string, bool) {
	switch vals := v.(type) {
	case []string:
		return vals, true
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
