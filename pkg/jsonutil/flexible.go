package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number
	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal.String()
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// A list of words is a reasonable answer for a descriptive facet.
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(FlexibleStringSlice(raw), ", ")
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleStringSlice converts a json.RawMessage to a []string. Arrays are
// converted element-wise; a bare string is split on commas, since models
// sometimes answer "red, teal, gold" where a list was asked for.
// Returns nil for null/empty.
func FlexibleStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := strings.TrimSpace(FlexibleStringValue(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	single := FlexibleStringValue(raw)
	out := []string{}
	for _, part := range strings.Split(single, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
