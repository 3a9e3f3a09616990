package services

import (
	"context"
	"errors"
	"testing"

	"taxprep-referral-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubGenerator fails the first `failures` calls, then succeeds.
type stubGenerator struct {
	failures int
	calls    int
}

func (g *stubGenerator) GeneratePage(ctx context.Context, city, state string) (string, string, string, error) {
	g.calls++
	if g.calls <= g.failures {
		return "", "", "", errors.New("model overloaded")
	}
	return "Tax Prep in " + city, "Expert tax preparation in " + city + ", " + state, "Body copy.", nil
}

func seedPendingPage(t *testing.T, db *gorm.DB, city, state string) *models.LandingPage {
	t.Helper()
	page := &models.LandingPage{
		ID:     uuid.NewString(),
		City:   city,
		State:  state,
		Slug:   "tax-preparation-" + city + "-" + state,
		Status: models.LandingPageStatusPending,
	}
	require.NoError(t, db.Create(page).Error)
	return page
}

func TestGenerateNextPendingPublishes(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, &stubGenerator{})
	page := seedPendingPage(t, db, "austin", "tx")

	did, err := svc.GenerateNextPending(context.Background())
	require.NoError(t, err)
	assert.True(t, did)

	var published models.LandingPage
	require.NoError(t, db.First(&published, "id = ?", page.ID).Error)
	assert.Equal(t, models.LandingPageStatusPublished, published.Status)
	assert.Equal(t, "Tax Prep in austin", published.Title)
	assert.NotEmpty(t, published.MetaDescription)
	assert.NotEmpty(t, published.Body)
	assert.Equal(t, 1, published.Attempts)
	assert.NotNil(t, published.PublishedAt)
}

func TestGenerateNextPendingEmptyQueue(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, &stubGenerator{})

	did, err := svc.GenerateNextPending(context.Background())
	require.NoError(t, err)
	assert.False(t, did)
}

func TestGenerateNextPendingRetriesThenFails(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGenerator{failures: 10}
	svc := NewContentService(db, gen)
	page := seedPendingPage(t, db, "dallas", "tx")

	for i := 0; i < models.MaxGenerationAttempts; i++ {
		did, err := svc.GenerateNextPending(context.Background())
		require.NoError(t, err)
		assert.True(t, did)
	}

	var failed models.LandingPage
	require.NoError(t, db.First(&failed, "id = ?", page.ID).Error)
	assert.Equal(t, models.LandingPageStatusFailed, failed.Status)
	assert.Equal(t, models.MaxGenerationAttempts, failed.Attempts)
	assert.Equal(t, "model overloaded", failed.LastError)

	// Parked in failed, no further attempts.
	did, err := svc.GenerateNextPending(context.Background())
	require.NoError(t, err)
	assert.False(t, did)
	assert.Equal(t, models.MaxGenerationAttempts, gen.calls)
}

func TestGenerateNextPendingRecoversAfterTransientFailure(t *testing.T) {
	db := newTestDB(t)
	svc := NewContentService(db, &stubGenerator{failures: 1})
	page := seedPendingPage(t, db, "houston", "tx")

	did, err := svc.GenerateNextPending(context.Background())
	require.NoError(t, err)
	assert.True(t, did)

	var retried models.LandingPage
	require.NoError(t, db.First(&retried, "id = ?", page.ID).Error)
	assert.Equal(t, models.LandingPageStatusPending, retried.Status)
	assert.Equal(t, "model overloaded", retried.LastError)

	did, err = svc.GenerateNextPending(context.Background())
	require.NoError(t, err)
	assert.True(t, did)

	require.NoError(t, db.First(&retried, "id = ?", page.ID).Error)
	assert.Equal(t, models.LandingPageStatusPublished, retried.Status)
	assert.Equal(t, 2, retried.Attempts)
}
