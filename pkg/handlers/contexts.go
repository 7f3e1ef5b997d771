package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/services"
)

// ContextsHandler handles saved-context HTTP requests.
type ContextsHandler struct {
	contextService    services.ContextService
	extractionService services.ContextExtractionService
	auditor           *audit.SecurityAuditor
	logger            *zap.Logger
}

// NewContextsHandler creates a new contexts handler.
func NewContextsHandler(
	contextService services.ContextService,
	extractionService services.ContextExtractionService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *ContextsHandler {
	return &ContextsHandler{
		contextService:    contextService,
		extractionService: extractionService,
		auditor:           auditor,
		logger:            logger.Named("contexts-handler"),
	}
}

// RegisterRoutes registers the contexts handler's routes on the given mux.
// rateLimit guards extraction and may be nil.
func (h *ContextsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, rateLimit Middleware) {
	base := "/api/contexts"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST "+base+"/save", authMiddleware.RequireAuth(h.Save))
	mux.HandleFunc("POST "+base+"/extract", authMiddleware.RequireAuth(wrap(rateLimit, h.Extract)))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH "+base+"/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /api/contexts
func (h *ContextsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	q, err := parseContextListQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, "List contexts", err, h.logger)
		return
	}
	auditFilters(r, h.auditor, map[string]string{
		"search": q.Search,
		"tags":   strings.Join(q.Tags, ","),
	})

	page, err := h.contextService.List(r.Context(), userID, q)
	if err != nil {
		writeServiceError(w, "List contexts", err, h.logger, zap.String("user_id", userID))
		return
	}

	writeSuccess(w, http.StatusOK, page, h.logger)
}

// Get handles GET /api/contexts/{id}
func (h *ContextsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseContextID(w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.contextService.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, "Get context", err, h.logger, zap.String("context_id", id.String()))
		return
	}

	writeSuccess(w, http.StatusOK, c, h.logger)
}

// Save handles POST /api/contexts/save
func (h *ContextsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var in models.ContextInput
	if !decodeJSON(w, r, &in, h.logger) {
		return
	}

	c, err := h.contextService.Save(r.Context(), userID, &in)
	if err != nil {
		writeServiceError(w, "Save context", err, h.logger, zap.String("user_id", userID))
		return
	}

	writeSuccess(w, http.StatusCreated, c, h.logger)
}

// Update handles PATCH /api/contexts/{id}
func (h *ContextsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseContextID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.ContextPatch
	if !decodeJSON(w, r, &patch, h.logger) {
		return
	}

	c, err := h.contextService.Update(r.Context(), userID, id, &patch)
	if err != nil {
		writeServiceError(w, "Update context", err, h.logger, zap.String("context_id", id.String()))
		return
	}

	writeSuccess(w, http.StatusOK, c, h.logger)
}

// Delete handles DELETE /api/contexts/{id}
func (h *ContextsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseContextID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.contextService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, "Delete context", err, h.logger, zap.String("context_id", id.String()))
		return
	}
	auditDeletion(r, h.auditor, "context", id.String())

	writeSuccess(w, http.StatusOK, MessageResponse{Message: "Context deleted successfully"}, h.logger)
}

// Extract handles POST /api/contexts/extract. The result is a preview and
// is never stored.
func (h *ContextsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r, h.logger); !ok {
		return
	}

	if err := parseMultipart(w, r); err != nil {
		writeServiceError(w, "Extract context", err, h.logger)
		return
	}
	img, err := formImage(r, "image")
	if err == nil && img == nil {
		err = apperrors.NewValidationError("image", "is required")
	}
	if err != nil {
		writeServiceError(w, "Extract context", err, h.logger)
		return
	}

	extracted, err := h.extractionService.Extract(r.Context(), base64.StdEncoding.EncodeToString(img.Data), img.MimeType)
	if err != nil {
		writeServiceError(w, "Extract context", err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, extracted, h.logger)
}
