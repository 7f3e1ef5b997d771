package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageMeta(t *testing.T) {
	tests := []struct {
		name                   string
		page, limit, total     int
		wantPages              int
		wantNext, wantPrevious bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"exact fit", 1, 10, 10, 1, false, false},
		{"one extra", 1, 10, 11, 2, true, false},
		{"middle page", 2, 5, 12, 3, true, true},
		{"last page", 3, 5, 12, 3, false, true},
		{"past the end", 9, 5, 12, 3, false, true},
		{"limit one", 1, 1, 3, 3, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPageMeta(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.wantPages, m.TotalPages)
			assert.Equal(t, tt.wantNext, m.HasNextPage)
			assert.Equal(t, tt.wantPrevious, m.HasPreviousPage)
			assert.Equal(t, m.Page < m.TotalPages, m.HasNextPage)
			assert.Equal(t, tt.total, m.TotalCount)
		})
	}
}

func TestQueryOffsets(t *testing.T) {
	assert.Equal(t, 0, ContextListQuery{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, ImageListQuery{Page: 3, Limit: 20}.Offset())
}
