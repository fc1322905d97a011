package seed

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/csr-service-match/internal/testutil"
)

func TestRunSmallDataSet(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := New(db, logger).WithNow(time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC))

	sum, err := s.Run(ctx, Options{CSRs: 3, PINs: 2, RequestsPerCategory: 4, BcryptCost: 4})
	require.NoError(t, err)

	want := Summary{Users: 9, Categories: 3, Requests: 17, Shortlists: 11, Matches: 6}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 17, testutil.Count(t, db, "SELECT COUNT(*) FROM requests"))
	assert.Equal(t, 6, testutil.Count(t, db, "SELECT COUNT(*) FROM match_records WHERE status = 'completed'"))
	assert.Equal(t, 6, testutil.Count(t, db, "SELECT COUNT(*) FROM requests WHERE status = 'closed' AND csr_id IS NOT NULL"))
	assert.Equal(t, 1, testutil.Count(t, db, "SELECT COUNT(*) FROM requests WHERE status = 'open' AND csr_id IS NOT NULL"))
	assert.Equal(t, 30, testutil.Count(t, db, "SELECT SUM(view_count) FROM requests"))
	// counters agree with the ledger
	assert.Equal(t, 0, testutil.Count(t, db, `SELECT COUNT(*) FROM requests r
		WHERE r.shortlist_count <> (SELECT COUNT(*) FROM shortlists s WHERE s.request_id = r.id)`))
	assert.Equal(t, 1, testutil.Count(t, db, "SELECT COUNT(*) FROM requests WHERE DATE(created_at) = '2025-10-21'"))

	_, err = s.Run(ctx, Options{BcryptCost: 4})
	assert.ErrorIs(t, err, ErrAlreadySeeded)
}
