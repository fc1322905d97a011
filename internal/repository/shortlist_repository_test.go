package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/csr-service-match/internal/model"
	"github.com/iliyamo/csr-service-match/internal/repository"
	"github.com/iliyamo/csr-service-match/internal/testutil"
)

func shortlistCount(t *testing.T, f requestFixture, id uint64) uint32 {
	t.Helper()
	req, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req.ShortlistCount
}

func TestShortlistDuplicateAddIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	repo := repository.NewShortlistRepo(f.db)
	id := testutil.InsertRequest(t, f.db, f.pin, f.cat, "Shop", model.StatusOpen, "2025-10-01 09:00:00")

	added, err := repo.Add(ctx, id, f.csr)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, uint32(1), shortlistCount(t, f, id))

	added, err = repo.Add(ctx, id, f.csr)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, uint32(1), shortlistCount(t, f, id))

	ok, err := repo.Exists(ctx, f.csr, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Add(ctx, 9999, f.csr)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestShortlistRemoveThenAddRestores(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	repo := repository.NewShortlistRepo(f.db)
	other := testutil.InsertUser(t, f.db, "csr2@example.com", model.RoleCSR)
	id := testutil.InsertRequest(t, f.db, f.pin, f.cat, "Shop", model.StatusOpen, "2025-10-01 09:00:00")

	_, err := repo.Add(ctx, id, f.csr)
	require.NoError(t, err)
	_, err = repo.Add(ctx, id, other)
	require.NoError(t, err)
	require.Equal(t, uint32(2), shortlistCount(t, f, id))

	require.NoError(t, repo.Remove(ctx, f.csr, id))
	assert.Equal(t, uint32(1), shortlistCount(t, f, id))

	added, err := repo.Add(ctx, id, f.csr)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, uint32(2), shortlistCount(t, f, id))
	assert.Equal(t, 2, testutil.Count(t, f.db, "SELECT COUNT(*) FROM shortlists WHERE request_id = ?", id))
}

func TestShortlistRemove(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	repo := repository.NewShortlistRepo(f.db)
	id := testutil.InsertRequest(t, f.db, f.pin, f.cat, "Shop", model.StatusOpen, "2025-10-01 09:00:00")

	assert.ErrorIs(t, repo.Remove(ctx, f.csr, id), repository.ErrNotFound)

	// counter drifted to zero out of band; removal must not go negative
	_, err := repo.Add(ctx, id, f.csr)
	require.NoError(t, err)
	_, err = f.db.Exec("UPDATE requests SET shortlist_count = 0 WHERE id = ?", id)
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, f.csr, id))
	assert.Equal(t, uint32(0), shortlistCount(t, f, id))
}

func TestShortlistListByCSR(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	repo := repository.NewShortlistRepo(f.db)
	transport := testutil.InsertCategory(t, f.db, "Transport", true)
	a := testutil.InsertRequest(t, f.db, f.pin, f.cat, "Shop", model.StatusOpen, "2025-10-01 09:00:00")
	b := testutil.InsertRequest(t, f.db, f.pin, transport, "Ride", model.StatusOpen, "2025-10-02 09:00:00")

	_, err := repo.Add(ctx, a, f.csr)
	require.NoError(t, err)
	_, err = repo.Add(ctx, b, f.csr)
	require.NoError(t, err)

	all, err := repo.ListByCSR(ctx, f.csr, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// same-second inserts fall back to id order
	assert.Equal(t, b, all[0].RequestID)
	assert.Equal(t, "Ride", all[0].Request.Title)
	assert.Equal(t, "Transport", all[0].Request.CategoryName)
	assert.Equal(t, a, all[1].RequestID)

	filtered, err := repo.ListByCSR(ctx, f.csr, &f.cat)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a, filtered[0].RequestID)

	none, err := repo.ListByCSR(ctx, f.pin, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
