package repository_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/csr-service-match/internal/model"
	"github.com/iliyamo/csr-service-match/internal/repository"
	"github.com/iliyamo/csr-service-match/internal/testutil"
)

func TestCategoryCreate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCategoryRepo(testutil.NewDB(t))

	c, err := repo.Create(ctx, "  Groceries ", "food runs")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Groceries", c.Name)
	assert.Equal(t, "food runs", c.Description)
	assert.True(t, c.IsActive)

	_, err = repo.Create(ctx, "groceries", "")
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Create(ctx, "   ", "")
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestCategorySuspendActivateRestores(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCategoryRepo(testutil.NewDB(t))

	orig, err := repo.Create(ctx, "Transport", "rides")
	require.NoError(t, err)

	suspended, err := repo.Suspend(ctx, orig.ID)
	require.NoError(t, err)
	assert.False(t, suspended.IsActive)

	// idempotent
	suspended, err = repo.Suspend(ctx, orig.ID)
	require.NoError(t, err)
	assert.False(t, suspended.IsActive)

	restored, err := repo.Activate(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)

	ignore := cmpopts.IgnoreFields(model.Category{}, "UpdatedAt")
	if diff := cmp.Diff(orig, restored, ignore); diff != "" {
		t.Errorf("suspend/activate changed fields (-orig +restored):\n%s", diff)
	}
}

func TestCategoryMissing(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCategoryRepo(testutil.NewDB(t))

	_, err := repo.Update(ctx, 99, "x", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Suspend(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrCategoryNotFound)
	_, err = repo.Activate(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCategoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCategoryRepo(testutil.NewDB(t))

	a, err := repo.Create(ctx, "Tutoring", "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Medical", "")
	require.NoError(t, err)

	got, err := repo.Update(ctx, a.ID, "Homework help", "after school")
	require.NoError(t, err)
	assert.Equal(t, "Homework help", got.Name)
	assert.Equal(t, "after school", got.Description)

	_, err = repo.Update(ctx, a.ID, "MEDICAL", "")
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = repo.Update(ctx, a.ID, "", "")
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestCategorySearchByName(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewCategoryRepo(db)
	testutil.InsertCategory(t, db, "Pet care", true)
	testutil.InsertCategory(t, db, "Carpentry", false)
	testutil.InsertCategory(t, db, "Groceries", true)

	got, err := repo.SearchByName(ctx, "CAR")
	require.NoError(t, err)
	names := []string{}
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Carpentry", "Pet care"}, names)

	all, err := repo.SearchByName(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCategoryRepeatedToggleKeepsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewCategoryRepo(db)
	id := testutil.InsertCategory(t, db, "Transport", false)
	_, err := db.Exec("UPDATE categories SET updated_at = '2001-02-03 04:05:06' WHERE id = ?", id)
	require.NoError(t, err)

	got, err := repo.Suspend(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 2001, got.UpdatedAt.Year())

	got, err = repo.Activate(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.NotEqual(t, 2001, got.UpdatedAt.Year())
}

func TestCategorySearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewCategoryRepo(db)
	testutil.InsertCategory(t, db, "Pet care", true)
	testutil.InsertCategory(t, db, "Groceries", true)
	testutil.InsertCategory(t, db, "Meals_on_wheels", true)

	for _, q := range []string{"%", "!"} {
		got, err := repo.SearchByName(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, got, "query %q", q)
	}

	got, err := repo.SearchByName(ctx, "_")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Meals_on_wheels", got[0].Name)
}
