//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/testhelpers"
)

// repoTestContext holds test dependencies shared by the repository tests.
// Every test gets its own users so the shared database needs no truncation.
type repoTestContext struct {
	t        *testing.T
	testDB   *testhelpers.TestDB
	contexts ContextRepository
	images   ImageRepository
	users    UserRepository
	userIDs  []string
}

func setupRepoTest(t *testing.T) *repoTestContext {
	testDB := testhelpers.GetTestDB(t)
	tc := &repoTestContext{
		t:        t,
		testDB:   testDB,
		contexts: NewContextRepository(testDB.DB),
		images:   NewImageRepository(testDB.DB),
		users:    NewUserRepository(testDB.DB),
	}
	t.Cleanup(tc.cleanup)
	return tc
}

// createUser inserts a user with a unique id and returns it.
func (tc *repoTestContext) createUser(name string) *models.User {
	tc.t.Helper()
	u := &models.User{ID: "user-" + uuid.NewString(), Name: name, Email: name + "@example.com"}
	if err := tc.users.Upsert(context.Background(), u); err != nil {
		tc.t.Fatalf("failed to create user: %v", err)
	}
	tc.userIDs = append(tc.userIDs, u.ID)
	return u
}

// cleanup removes the test users; contexts and images cascade.
func (tc *repoTestContext) cleanup() {
	ctx := context.Background()
	for _, id := range tc.userIDs {
		_, _ = tc.testDB.DB.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	}
}

func completeStructuredData() models.StructuredData {
	return models.StructuredData{
		models.FacetSubject:      "a lighthouse",
		models.FacetEnvironment:  "rocky coast",
		models.FacetLighting:     "golden hour",
		models.FacetColorPalette: []any{"amber", "slate"},
		models.FacetCamera:       "35mm",
		models.FacetComposition:  "rule of thirds",
		models.FacetMood:         "calm",
		models.FacetStyle:        "photoreal",
		models.FacetMaterials:    "stone",
		models.FacetEra:          "modern",
		models.FacetRenderType:   "photograph",
	}
}
