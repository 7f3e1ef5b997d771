package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/imagegen"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/storage"
)

// mockContextRepository is a configurable mock for testing context consumers.
type mockContextRepository struct {
	contexts  map[uuid.UUID]*models.Context
	listItems []*models.Context
	listTotal int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	usageErr  error

	// Capture inputs for verification
	created        *models.Context
	capturedQuery  models.ContextListQuery
	capturedPatch  *models.ContextPatch
	capturedUserID string
	usageCalls     []uuid.UUID
}

func newMockContextRepository() *mockContextRepository {
	return &mockContextRepository{contexts: make(map[uuid.UUID]*models.Context)}
}

func (m *mockContextRepository) List(ctx context.Context, userID string, q models.ContextListQuery) ([]*models.Context, int, error) {
	m.capturedUserID = userID
	m.capturedQuery = q
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockContextRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Context, error) {
	m.capturedUserID = userID
	c, ok := m.contexts[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

func (m *mockContextRepository) Create(ctx context.Context, c *models.Context) error {
	if m.createErr != nil {
		return m.createErr
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.created = c
	m.contexts[c.ID] = c
	return nil
}

func (m *mockContextRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *models.ContextPatch) (*models.Context, error) {
	m.capturedPatch = patch
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	c, ok := m.contexts[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	return c, nil
}

func (m *mockContextRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	c, ok := m.contexts[id]
	if !ok || c.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(m.contexts, id)
	return nil
}

func (m *mockContextRepository) IncrementUsage(ctx context.Context, userID string, id uuid.UUID) error {
	m.usageCalls = append(m.usageCalls, id)
	return m.usageErr
}

// mockImageRepository records every row written.
type mockImageRepository struct {
	mu        sync.Mutex
	images    map[uuid.UUID]*models.Image
	created   []*models.Image
	createErr error
	deleteErr error

	publicRows    []*models.ExploreImage
	publicErr     error
	publicLimit   int
	publicCursor  *time.Time
	publicSearch  string
	publicCalls   int
	onListPublic  func()
	listItems     []*models.Image
	listTotal     int
	deletedIDs    []uuid.UUID
	createCtxDone bool
}

func newMockImageRepository() *mockImageRepository {
	return &mockImageRepository{images: make(map[uuid.UUID]*models.Image)}
}

func (m *mockImageRepository) Create(ctx context.Context, img *models.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCtxDone = ctx.Err() != nil
	if m.createErr != nil {
		return m.createErr
	}
	img.ID = uuid.New()
	img.CreatedAt = time.Now()
	m.created = append(m.created, img)
	m.images[img.ID] = img
	return nil
}

func (m *mockImageRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*models.Image, error) {
	img, ok := m.images[id]
	if !ok || img.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return img, nil
}

func (m *mockImageRepository) ListByUser(ctx context.Context, userID string, q models.ImageListQuery) ([]*models.Image, int, error) {
	return m.listItems, m.listTotal, nil
}

func (m *mockImageRepository) ListPublic(ctx context.Context, cursor *time.Time, search string, n int) ([]*models.ExploreImage, error) {
	m.publicCalls++
	if m.onListPublic != nil {
		m.onListPublic()
	}
	m.publicCursor = cursor
	m.publicSearch = search
	m.publicLimit = n
	if m.publicErr != nil {
		return nil, m.publicErr
	}
	if n < len(m.publicRows) {
		return m.publicRows[:n], nil
	}
	return m.publicRows, nil
}

func (m *mockImageRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	img, ok := m.images[id]
	if !ok || img.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(m.images, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

// mockUserRepository counts upserts.
type mockUserRepository struct {
	upserts   []*models.User
	upsertErr error
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, user)
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.upserts {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// mockGenerator is a configurable imagegen.Generator.
type mockGenerator struct {
	generateFunc func(ctx context.Context, req imagegen.Request) (*imagegen.Result, error)
	calls        []imagegen.Request
}

func (m *mockGenerator) Generate(ctx context.Context, req imagegen.Request) (*imagegen.Result, error) {
	m.calls = append(m.calls, req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &imagegen.Result{
		URL:       "http://assets.example.com/gen/abc.png",
		SecureURL: "https://assets.example.com/gen/abc.png",
		PublicID:  "gen/abc.png",
	}, nil
}

func (m *mockGenerator) Model() string {
	return "mock-image-model"
}

// mockExpander returns a fixed expansion or error.
type mockExpander struct {
	expanded string
	err      error
	calls    int
}

func (m *mockExpander) Expand(ctx context.Context, rawPrompt string) (string, error) {
	m.calls++
	return m.expanded, m.err
}

// mockAssetStore records destroy calls.
type mockAssetStore struct {
	destroyErr error
	destroyed  []string
}

func (m *mockAssetStore) Upload(ctx context.Context, folder string, data []byte, mimeType string) (*storage.Asset, error) {
	return &storage.Asset{PublicID: folder + "/x.png"}, nil
}

func (m *mockAssetStore) Destroy(ctx context.Context, publicID string) error {
	m.destroyed = append(m.destroyed, publicID)
	return m.destroyErr
}

// mockExploreCache is an in-memory cache keyed by the whole query. Like the
// Redis cache, writes stamped with a retired version are dropped.
type mockExploreCache struct {
	pages         map[models.ExploreQuery]*models.ExplorePage
	version       int64
	invalidations int
}

func newMockExploreCache() *mockExploreCache {
	return &mockExploreCache{pages: make(map[models.ExploreQuery]*models.ExplorePage)}
}

func (m *mockExploreCache) Get(ctx context.Context, q models.ExploreQuery) (*models.ExplorePage, int64, bool) {
	p, ok := m.pages[q]
	return p, m.version, ok
}

func (m *mockExploreCache) Set(ctx context.Context, q models.ExploreQuery, version int64, page *models.ExplorePage) {
	if version != m.version {
		return
	}
	m.pages[q] = page
}

func (m *mockExploreCache) Invalidate(ctx context.Context) {
	m.invalidations++
	m.version++
	m.pages = make(map[models.ExploreQuery]*models.ExplorePage)
}

// completeStructuredData returns a valid eleven-facet descriptor.
func completeStructuredData() models.StructuredData {
	return models.StructuredData{
		"subject":      "a lighthouse",
		"environment":  "rocky coast",
		"lighting":     "golden hour",
		"colorPalette": []any{"amber", "teal"},
		"camera":       "wide angle",
		"composition":  "rule of thirds",
		"mood":         "calm",
		"style":        "oil painting",
		"materials":    "stone",
		"era":          "19th century",
		"renderType":   "painting",
	}
}
