package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/services"
)

type mockContextService struct {
	listQuery models.ContextListQuery
	listPage  *services.ContextPage
	context   *models.Context
	saved     *models.ContextInput
	patch     *models.ContextPatch
	deleted   []uuid.UUID
	err       error
}

func (m *mockContextService) List(ctx context.Context, userID string, q models.ContextListQuery) (*services.ContextPage, error) {
	m.listQuery = q
	if m.err != nil {
		return nil, m.err
	}
	if m.listPage != nil {
		return m.listPage, nil
	}
	return &services.ContextPage{Items: []*models.Context{}, Pagination: models.NewPageMeta(q.Page, q.Limit, 0)}, nil
}

func (m *mockContextService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.context, nil
}

func (m *mockContextService) Save(ctx context.Context, userID string, in *models.ContextInput) (*models.Context, error) {
	m.saved = in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Context{ID: uuid.New(), UserID: userID, Name: in.Name, Tags: in.Tags}, nil
}

func (m *mockContextService) Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error) {
	m.patch = patch
	if m.err != nil {
		return nil, m.err
	}
	return m.context, nil
}

func (m *mockContextService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockExtractionService struct {
	gotBase64 string
	gotMime   string
	result    *models.ExtractedContext
	err       error
}

func (m *mockExtractionService) Extract(ctx context.Context, imageBase64, mimeType string) (*models.ExtractedContext, error) {
	m.gotBase64 = imageBase64
	m.gotMime = mimeType
	return m.result, m.err
}

type mockGenerationService struct {
	req    *services.GenerateRequest
	result *services.GenerateResult
	err    error
}

func (m *mockGenerationService) Generate(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResult, error) {
	m.req = req
	return m.result, m.err
}

type mockImageService struct {
	exploreQuery models.ExploreQuery
	explorePage  *models.ExplorePage
	listQuery    models.ImageListQuery
	image        *models.Image
	deleted      []uuid.UUID
	err          error
}

func (m *mockImageService) Explore(ctx context.Context, q models.ExploreQuery) (*models.ExplorePage, error) {
	m.exploreQuery = q
	if m.err != nil {
		return nil, m.err
	}
	if m.explorePage != nil {
		return m.explorePage, nil
	}
	return &models.ExplorePage{Items: []*models.ExploreImage{}}, nil
}

func (m *mockImageService) List(ctx context.Context, userID string, q models.ImageListQuery) (*services.ImagePage, error) {
	m.listQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return &services.ImagePage{Items: []*models.Image{}, Pagination: models.NewPageMeta(q.Page, q.Limit, 0)}, nil
}

func (m *mockImageService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.image, nil
}

func (m *mockImageService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAuthService struct {
	session *auth.Session
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Session, error) {
	if m.session == nil {
		return nil, auth.ErrMissingAuthorization
	}
	return m.session, nil
}

// authAs returns middleware that authenticates every request as userID, or
// rejects every request when userID is empty.
func authAs(userID string) *auth.Middleware {
	svc := &mockAuthService{}
	if userID != "" {
		svc.session = &auth.Session{UserID: userID, Name: "Test User", Source: "bearer"}
	}
	return auth.NewMiddleware(svc, nil, zap.NewNop())
}

// withUser attaches a session the way the auth middleware does.
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), &auth.Session{UserID: userID}))
}

type formFile struct {
	field    string
	filename string
	mimeType string
	data     []byte
}

// multipartBody encodes fields and files as multipart/form-data.
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.mimeType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// decodeBody unmarshals a recorded response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

// pngBytes is a minimal PNG signature, enough for upload validation.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
