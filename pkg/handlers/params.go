package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

// Listing defaults and bounds.
const (
	defaultContextLimit = 10
	defaultImageLimit   = 20
	maxListLimit        = 100

	// maxListPage keeps (page-1)*limit inside a Postgres integer OFFSET.
	maxListPage = math.MaxInt32 / maxListLimit
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// requireUser returns the session user id, writing 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", logger)
		return "", false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "Invalid request body", logger)
		return false
	}
	return true
}

// ParseContextID extracts the context ID from the request path. A malformed
// id cannot name an existing context, so it is answered with 404.
// Expects path parameter: id
func ParseContextID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "Context not found", logger)
		return uuid.Nil, false
	}
	return id, true
}

// ParseImageID extracts and validates the image ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: id
func ParseImageID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "Invalid image ID format", logger)
		return uuid.Nil, false
	}
	return id, true
}

// parseContextListQuery validates every listing parameter in one pass and
// reports the first problem.
func parseContextListQuery(values url.Values) (models.ContextListQuery, error) {
	q := models.ContextListQuery{
		SortBy:    models.ContextSortCreatedAt,
		SortOrder: models.SortDesc,
	}

	var err error
	if q.Page, err = intParam(values, "page", 1, 1, maxListPage); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values, "limit", defaultContextLimit, 1, maxListLimit); err != nil {
		return q, err
	}

	if v := values.Get("sortBy"); v != "" {
		switch field := models.ContextSortField(v); field {
		case models.ContextSortCreatedAt, models.ContextSortName, models.ContextSortUsageCount:
			q.SortBy = field
		default:
			return q, apperrors.NewValidationError("sortBy", "must be one of createdAt, name, usageCount")
		}
	}

	if v := values.Get("sortOrder"); v != "" {
		switch order := models.SortOrder(v); order {
		case models.SortAsc, models.SortDesc:
			q.SortOrder = order
		default:
			return q, apperrors.NewValidationError("sortOrder", "must be asc or desc")
		}
	}

	q.Search = strings.TrimSpace(values.Get("search"))

	if v := values.Get("tags"); v != "" {
		if tags := models.NormalizeTags(strings.Split(v, ",")); len(tags) > 0 {
			q.Tags = tags
		}
	}

	return q, nil
}

func parseImageListQuery(values url.Values) (models.ImageListQuery, error) {
	var q models.ImageListQuery
	var err error
	if q.Page, err = intParam(values, "page", 1, 1, maxListPage); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values, "limit", defaultImageLimit, 1, maxListLimit); err != nil {
		return q, err
	}
	return q, nil
}

// parseExploreQuery never fails: a non-numeric limit falls back to the
// default and an unparseable cursor is ignored.
func parseExploreQuery(values url.Values) models.ExploreQuery {
	var q models.ExploreQuery

	if n, err := strconv.Atoi(strings.TrimSpace(values.Get("limit"))); err == nil {
		q.Limit = n
		if n == 0 {
			q.Limit = 1
		}
	}

	if v := strings.TrimSpace(values.Get("cursor")); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			q.Cursor = &t
		}
	}

	q.Search = strings.TrimSpace(values.Get("search"))
	return q
}

// intParam parses an optional integer within [lo, hi]. hi <= 0 means unbounded.
func intParam(values url.Values, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}
	if hi > 0 && (n < lo || n > hi) {
		return 0, apperrors.NewValidationError(name, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	if n < lo {
		return 0, apperrors.NewValidationError(name, fmt.Sprintf("must be at least %d", lo))
	}
	return n, nil
}
