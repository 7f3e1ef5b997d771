package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/services"
)

// ImagesHandler handles generation and image listing HTTP requests.
type ImagesHandler struct {
	generationService services.GenerationService
	imageService      services.ImageService
	auditor           *audit.SecurityAuditor
	logger            *zap.Logger
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(
	generationService services.GenerationService,
	imageService services.ImageService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *ImagesHandler {
	return &ImagesHandler{
		generationService: generationService,
		imageService:      imageService,
		auditor:           auditor,
		logger:            logger.Named("images-handler"),
	}
}

// RegisterRoutes registers the images handler's routes on the given mux.
// The explore feed is public. rateLimit guards generation and may be nil.
func (h *ImagesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, rateLimit Middleware) {
	base := "/api/images"

	mux.HandleFunc("GET "+base+"/explore", h.Explore)
	mux.HandleFunc("POST "+base+"/generate", authMiddleware.RequireAuth(wrap(rateLimit, h.Generate)))
	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(h.Delete))
}

// Generate handles POST /api/images/generate
func (h *ImagesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := parseMultipart(w, r); err != nil {
		writeServiceError(w, "Generate image", err, h.logger)
		return
	}

	smart, err := formBool(r, "smartExpansion")
	if err != nil {
		writeServiceError(w, "Generate image", err, h.logger)
		return
	}
	img, err := formImage(r, "image")
	if err != nil {
		writeServiceError(w, "Generate image", err, h.logger)
		return
	}

	result, err := h.generationService.Generate(r.Context(), &services.GenerateRequest{
		UserID:         userID,
		Prompt:         r.FormValue("prompt"),
		SmartExpansion: smart,
		ContextID:      r.FormValue("contextId"),
		Image:          img,
	})
	if err != nil {
		writeServiceError(w, "Generate image", err, h.logger, zap.String("user_id", userID))
		return
	}

	writeSuccess(w, http.StatusCreated, result, h.logger)
}

// Explore handles GET /api/images/explore
func (h *ImagesHandler) Explore(w http.ResponseWriter, r *http.Request) {
	q := parseExploreQuery(r.URL.Query())
	auditFilters(r, h.auditor, map[string]string{"search": q.Search})

	page, err := h.imageService.Explore(r.Context(), q)
	if err != nil {
		writeServiceError(w, "Explore images", err, h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, page, h.logger)
}

// List handles GET /api/images
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	q, err := parseImageListQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, "List images", err, h.logger)
		return
	}

	page, err := h.imageService.List(r.Context(), userID, q)
	if err != nil {
		writeServiceError(w, "List images", err, h.logger, zap.String("user_id", userID))
		return
	}

	writeSuccess(w, http.StatusOK, page, h.logger)
}

// Get handles GET /api/images/{id}
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}

	img, err := h.imageService.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, "Get image", err, h.logger, zap.String("image_id", id.String()))
		return
	}

	writeSuccess(w, http.StatusOK, img, h.logger)
}

// Delete handles DELETE /api/images/{id}
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseImageID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.imageService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, "Delete image", err, h.logger, zap.String("image_id", id.String()))
		return
	}
	auditDeletion(r, h.auditor, "image", id.String())

	writeSuccess(w, http.StatusOK, MessageResponse{Message: "Image deleted successfully"}, h.logger)
}
