package queue

import (
    "context"
    "encoding/json"
    "io"
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/testutil"
)

func quietLogger() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

func TestHandleMessageRecordsCompletion(t *testing.T) {
    ctx := context.Background()
    db := testutil.NewDB(t)
    pin := testutil.InsertUser(t, db, "pin@example.com", model.RolePIN)
    csr := testutil.InsertUser(t, db, "csr@example.com", model.RoleCSR)
    cat := testutil.InsertCategory(t, db, "Groceries", true)
    reqID := testutil.InsertRequest(t, db, pin, cat, "Shop", model.StatusClosed, "2025-10-01 09:00:00")

    matches := repository.NewMatchRepo(db)
    w := NewMatchWorker("amqp://unused", matches, quietLogger())

    body, err := json.Marshal(RequestClosedEvent{
        RequestID: reqID, PinID: pin, CsrID: csr, CategoryID: cat,
        ClosedAt: time.Date(2025, 10, 2, 15, 0, 0, 0, time.UTC),
    })
    require.NoError(t, err)

    require.NoError(t, w.handleMessage(ctx, body))
    // redelivery is harmless
    require.NoError(t, w.handleMessage(ctx, body))
    assert.Equal(t, 1, testutil.Count(t, db, "SELECT COUNT(*) FROM match_records WHERE request_id = ?", reqID))

    rec, err := matches.GetByRequest(ctx, reqID)
    require.NoError(t, err)
    assert.Equal(t, csr, rec.CsrID)
    require.NotNil(t, rec.CompletedAt)
    assert.Equal(t, "2025-10-02", rec.CompletedAt.Format("2006-01-02"))
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
    ctx := context.Background()
    w := NewMatchWorker("amqp://unused", repository.NewMatchRepo(testutil.NewDB(t)), quietLogger())

    assert.Error(t, w.handleMessage(ctx, []byte("{not json")))
    assert.Error(t, w.handleMessage(ctx, []byte(`{"request_id": 1}`)))
    // deleted request: acknowledged, nothing written
    assert.NoError(t, w.handleMessage(ctx, []byte(`{"request_id": 77, "csr_id": 3}`)))
}

func TestRetryableSeparatesBadEventsFromStorageFailures(t *testing.T) {
    ctx := context.Background()
    db := testutil.NewDB(t)
    w := NewMatchWorker("amqp://unused", repository.NewMatchRepo(db), quietLogger())

    err := w.handleMessage(ctx, []byte("{not json"))
    require.Error(t, err)
    assert.False(t, retryable(err))

    err = w.handleMessage(ctx, []byte(`{"request_id": 1}`))
    require.Error(t, err)
    assert.False(t, retryable(err))

    // closed database stands in for an unreachable server
    require.NoError(t, db.Close())
    err = w.handleMessage(ctx, []byte(`{"request_id": 5, "csr_id": 3}`))
    require.Error(t, err)
    assert.True(t, retryable(err))
}
