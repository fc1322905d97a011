package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/queue"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/testutil"
)

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.RequestClosedEvent
    err    error
}

func (p *recordingPublisher) PublishRequestClosed(_ context.Context, ev queue.RequestClosedEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) published() []queue.RequestClosedEvent {
    p.mu.Lock()
    defer p.mu.Unlock()
    return append([]queue.RequestClosedEvent(nil), p.events...)
}

type pinFixture struct {
    testEnv
    h        *PINHandler
    pub      *recordingPublisher
    pin      uint64
    otherPIN uint64
    csr      uint64
    cat      uint64
}

func newPINFixture(t *testing.T) pinFixture {
    env := newTestEnv(t)
    pub := &recordingPublisher{}
    h := NewPINHandler(repository.NewRequestRepo(env.db), repository.NewMatchRepo(env.db), pub, env.log)
    return pinFixture{
        testEnv:  env,
        h:        h,
        pub:      pub,
        pin:      testutil.InsertUser(t, env.db, "pin@example.com", model.RolePIN),
        otherPIN: testutil.InsertUser(t, env.db, "pin2@example.com", model.RolePIN),
        csr:      testutil.InsertUser(t, env.db, "csr@example.com", model.RoleCSR),
        cat:      testutil.InsertCategory(t, env.db, "Groceries", true),
    }
}

func (f pinFixture) create(t *testing.T, title string) model.Request {
    t.Helper()
    body := `{"category_id":` + strconv.FormatUint(f.cat, 10) + `,"title":"` + title + `","description":"bags"}`
    rec := f.call(t, f.h.CreateRequest, http.MethodPost, "/v1/pin/requests", body, f.pin)
    requireStatus(t, http.StatusCreated, rec)
    return decode[model.Request](t, rec)
}

func TestPINCreateAndGet(t *testing.T) {
    f := newPINFixture(t)
    req := f.create(t, "Weekly shop")
    assert.Equal(t, model.StatusOpen, req.Status)
    assert.Equal(t, f.pin, req.PinID)
    id := strconv.FormatUint(req.ID, 10)

    rec := f.call(t, f.h.GetRequest, http.MethodGet, "/", "", f.pin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, "Weekly shop", decode[model.Request](t, rec).Title)

    rec = f.call(t, f.h.GetRequest, http.MethodGet, "/", "", f.otherPIN, "id", id)
    requireStatus(t, http.StatusForbidden, rec)

    rec = f.call(t, f.h.GetRequest, http.MethodGet, "/", "", f.pin, "id", "999")
    requireStatus(t, http.StatusNotFound, rec)

    rec = f.call(t, f.h.GetRequest, http.MethodGet, "/", "", f.pin, "id", "abc")
    requireStatus(t, http.StatusBadRequest, rec)
}

func TestPINCreateRejectsBadInput(t *testing.T) {
    f := newPINFixture(t)

    rec := f.call(t, f.h.CreateRequest, http.MethodPost, "/", `{"category_id":1}`, f.pin)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = f.call(t, f.h.CreateRequest, http.MethodPost, "/", `{"category_id":999,"title":"x"}`, f.pin)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = f.call(t, f.h.CreateRequest, http.MethodPost, "/", `{"category_id":1,"title":"x"}`, 0)
    requireStatus(t, http.StatusUnauthorized, rec)
    assert.Equal(t, 0, testutil.Count(t, f.db, "SELECT COUNT(*) FROM requests"))
}

func TestPINUpdateClosingWithCSRPublishes(t *testing.T) {
    f := newPINFixture(t)
    req := f.create(t, "Ride to clinic")
    require.NoError(t, f.h.Requests.AssignCSR(context.Background(), req.ID, f.csr))

    var wg sync.WaitGroup
    wg.Add(1)
    f.h.publishDone = wg.Done

    rec := f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"status":"closed"}`, f.pin, "id", strconv.FormatUint(req.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    updated := decode[model.Request](t, rec)
    assert.Equal(t, model.StatusClosed, updated.Status)
    require.NotNil(t, updated.ClosedAt)

    wg.Wait()
    events := f.pub.published()
    require.Len(t, events, 1)
    assert.Equal(t, req.ID, events[0].RequestID)
    assert.Equal(t, f.csr, events[0].CsrID)
    assert.Equal(t, f.pin, events[0].PinID)
    assert.Equal(t, f.cat, events[0].CategoryID)
    assert.WithinDuration(t, *updated.ClosedAt, events[0].ClosedAt, time.Second)
}

func TestPINUpdatePublishFailureDoesNotFailRequest(t *testing.T) {
    f := newPINFixture(t)
    f.pub.err = errors.New("broker down")
    req := f.create(t, "Ride to clinic")
    require.NoError(t, f.h.Requests.AssignCSR(context.Background(), req.ID, f.csr))

    var wg sync.WaitGroup
    wg.Add(1)
    f.h.publishDone = wg.Done

    rec := f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"status":"closed"}`, f.pin, "id", strconv.FormatUint(req.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    wg.Wait()
    assert.Len(t, f.pub.published(), 1)
}

func TestPINUpdateWithoutCSRDoesNotPublish(t *testing.T) {
    f := newPINFixture(t)
    f.h.publishDone = func() { t.Error("unexpected publish") }
    req := f.create(t, "Ride to clinic")

    rec := f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"status":"closed","title":"Ride"}`, f.pin, "id", strconv.FormatUint(req.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, "Ride", decode[model.Request](t, rec).Title)
    assert.Empty(t, f.pub.published())
}

func TestPINUpdateErrors(t *testing.T) {
    f := newPINFixture(t)
    a := f.create(t, "first")
    b := f.create(t, "second")
    aID := strconv.FormatUint(a.ID, 10)

    rec := f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"id":`+strconv.FormatUint(b.ID, 10)+`}`, f.pin, "id", aID)
    requireStatus(t, http.StatusConflict, rec)

    rec = f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"title":"mine now"}`, f.otherPIN, "id", aID)
    requireStatus(t, http.StatusForbidden, rec)

    rec = f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"category_id":999}`, f.pin, "id", aID)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"title":"x"}`, f.pin, "id", "999")
    requireStatus(t, http.StatusNotFound, rec)

    rec = f.call(t, f.h.GetRequest, http.MethodGet, "/", "", f.pin, "id", aID)
    assert.Equal(t, "first", decode[model.Request](t, rec).Title)
}

func TestPINUpdateReassignsID(t *testing.T) {
    f := newPINFixture(t)
    a := f.create(t, "first")
    shortlists := repository.NewShortlistRepo(f.db)
    _, err := shortlists.Add(context.Background(), a.ID, f.csr)
    require.NoError(t, err)

    rec := f.call(t, f.h.UpdateRequest, http.MethodPatch, "/", `{"id":500}`, f.pin, "id", strconv.FormatUint(a.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, uint64(500), decode[model.Request](t, rec).ID)
    assert.Equal(t, 1, testutil.Count(t, f.db, "SELECT COUNT(*) FROM shortlists WHERE request_id = 500"))
}

func TestPINDeleteCascades(t *testing.T) {
    f := newPINFixture(t)
    a := f.create(t, "first")
    aID := strconv.FormatUint(a.ID, 10)
    _, err := repository.NewShortlistRepo(f.db).Add(context.Background(), a.ID, f.csr)
    require.NoError(t, err)

    rec := f.call(t, f.h.DeleteRequest, http.MethodDelete, "/", "", f.otherPIN, "id", aID)
    requireStatus(t, http.StatusForbidden, rec)

    rec = f.call(t, f.h.DeleteRequest, http.MethodDelete, "/", "", f.pin, "id", aID)
    requireStatus(t, http.StatusNoContent, rec)
    assert.Equal(t, 0, testutil.Count(t, f.db, "SELECT COUNT(*) FROM shortlists"))

    rec = f.call(t, f.h.DeleteRequest, http.MethodDelete, "/", "", f.pin, "id", aID)
    requireStatus(t, http.StatusNotFound, rec)
}

func TestPINSearchRequestsPaginates(t *testing.T) {
    f := newPINFixture(t)
    testutil.InsertRequest(t, f.db, f.pin, f.cat, "Grocery run", model.StatusOpen, "2025-10-01 09:00:00")
    testutil.InsertRequest(t, f.db, f.pin, f.cat, "grocery pickup", model.StatusDraft, "2025-10-02 09:00:00")
    testutil.InsertRequest(t, f.db, f.pin, f.cat, "Dog walk", model.StatusOpen, "2025-10-03 09:00:00")
    testutil.InsertRequest(t, f.db, f.otherPIN, f.cat, "Grocery other", model.StatusOpen, "2025-10-04 09:00:00")

    rec := f.call(t, f.h.SearchRequests, http.MethodGet, "/v1/pin/requests?q=GROCERY&per_page=1", "", f.pin)
    requireStatus(t, http.StatusOK, rec)
    page := decode[pageBody[model.Request]](t, rec)
    assert.Equal(t, 2, page.Total)
    assert.Equal(t, 2, page.TotalPages)
    assert.True(t, page.HasNext)
    require.Len(t, page.Items, 1)
    assert.Equal(t, "grocery pickup", page.Items[0].Title)
}

func TestPINCountersAndDashboard(t *testing.T) {
    f := newPINFixture(t)
    a := f.create(t, "first")
    testutil.InsertRequest(t, f.db, f.pin, f.cat, "draft one", model.StatusDraft, "2025-10-02 09:00:00")
    ctx := context.Background()
    _, err := f.h.Requests.View(ctx, a.ID)
    require.NoError(t, err)
    _, err = repository.NewShortlistRepo(f.db).Add(ctx, a.ID, f.csr)
    require.NoError(t, err)

    rec := f.call(t, f.h.Counters, http.MethodGet, "/", "", f.pin, "id", strconv.FormatUint(a.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    counters := decode[map[string]uint64](t, rec)
    assert.Equal(t, uint64(1), counters["view_count"])
    assert.Equal(t, uint64(1), counters["shortlist_count"])

    rec = f.call(t, f.h.Dashboard, http.MethodGet, "/", "", f.pin)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, model.RequestStats{Total: 2, Draft: 1, Open: 1}, decode[model.RequestStats](t, rec))
}

func TestPINMatches(t *testing.T) {
    f := newPINFixture(t)
    a := f.create(t, "first")
    _, _, err := f.h.Matches.RecordCompletion(context.Background(), model.Completion{
        RequestID:   a.ID,
        CsrID:       f.csr,
        MatchedAt:   time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
        CompletedAt: time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC),
    })
    require.NoError(t, err)

    rec := f.call(t, f.h.SearchMatches, http.MethodGet, "/v1/pin/matches?category=groc&from=2025-10-03&to=2025-10-03", "", f.pin)
    requireStatus(t, http.StatusOK, rec)
    page := decode[pageBody[model.MatchRecord]](t, rec)
    require.Len(t, page.Items, 1)
    assert.Equal(t, a.ID, page.Items[0].RequestID)

    rec = f.call(t, f.h.SearchMatches, http.MethodGet, "/v1/pin/matches?from=2025-10-04", "", f.pin)
    requireStatus(t, http.StatusOK, rec)
    assert.Empty(t, decode[pageBody[model.MatchRecord]](t, rec).Items)

    rec = f.call(t, f.h.SearchMatches, http.MethodGet, "/v1/pin/matches?from=yesterday", "", f.pin)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = f.call(t, f.h.GetMatch, http.MethodGet, "/", "", f.pin, "id", strconv.FormatUint(a.ID, 10))
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, f.csr, decode[model.MatchRecord](t, rec).CsrID)

    rec = f.call(t, f.h.GetMatch, http.MethodGet, "/", "", f.otherPIN, "id", strconv.FormatUint(a.ID, 10))
    requireStatus(t, http.StatusForbidden, rec)
}
