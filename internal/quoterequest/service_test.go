package quoterequest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*QuoteRequest
	byToken  map[string]uuid.UUID
	failNext error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byID:    make(map[uuid.UUID]*QuoteRequest),
		byToken: make(map[string]uuid.UUID),
	}
}

func (r *memoryRepo) Create(ctx context.Context, q QuoteRequest) (*QuoteRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(q.Items))
	for _, item := range q.Items {
		if _, dup := seen[item.Key()]; dup {
			return nil, ErrDuplicateItem
		}
		seen[item.Key()] = struct{}{}
	}
	q.ID = uuid.New()
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	stored := q
	r.byID[q.ID] = &stored
	r.byToken[q.Token] = q.ID
	return copyRequest(&stored), nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*QuoteRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("quote request: %w", httpx.ErrNotFound)
	}
	return copyRequest(q), nil
}

func (r *memoryRepo) GetByToken(ctx context.Context, token string) (*QuoteRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, fmt.Errorf("quote request: %w", httpx.ErrNotFound)
	}
	return copyRequest(r.byID[id]), nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]QuoteRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []QuoteRequest
	for _, q := range r.byID {
		if filter.OrderID != nil && q.OrderID != *filter.OrderID {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		out = append(out, *copyRequest(q))
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]QuoteRequest, error) {
	requests, _, err := r.List(ctx, ListFilter{})
	return requests, err
}

func (r *memoryRepo) Submit(ctx context.Context, token string, values map[string]SubmittedValue, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return false, err
	}
	id, ok := r.byToken[token]
	if !ok {
		return false, nil
	}
	q := r.byID[id]
	// Mirrors the conditional single-row update: only a pending, unexpired
	// request matches.
	if q.Status != StatusPending || !q.TokenExpiresAt.After(now) {
		return false, nil
	}
	q.Status = StatusSubmitted
	submittedAt := now
	q.SubmittedAt = &submittedAt
	q.UpdatedAt = now
	for i := range q.Items {
		if value, ok := values[q.Items[i].Key()]; ok {
			price := value.Price
			q.Items[i].VendorPrice = &price
			q.Items[i].VendorRemark = value.Remark
		}
	}
	return true, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	q.Status = status
	q.UpdatedAt = now
	return true, nil
}

func (r *memoryRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, q := range r.byID {
		counts[q.Status]++
	}
	return counts, nil
}

func (r *memoryRepo) CountExpiredPending(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, q := range r.byID {
		if q.Status == StatusPending && q.TokenExpiresAt.Before(before) {
			count++
		}
	}
	return count, nil
}

func copyRequest(q *QuoteRequest) *QuoteRequest {
	clone := *q
	clone.Items = make([]Item, len(q.Items))
	copy(clone.Items, q.Items)
	return &clone
}

type memoryAudit struct {
	mu      sync.Mutex
	records []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, log)
	return nil
}

type failingAudit struct{ err error }

func (a *failingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	return a.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo, audit AuditRecorder) *Service {
	return NewService(repo, audit, 7*24*time.Hour).WithClock(fixedClock(testNow))
}

func strptr(s string) *string { return &s }

func createRequest() CreateRequest {
	return CreateRequest{
		OrderID:     "ORD-1",
		VendorName:  strptr("Acme Supplies"),
		VendorEmail: strptr("Quotes@Acme.Example"),
		Items: []CreateItemRequest{
			{ProductID: "P1", RequestedQty: 2},
			{ProductID: "P1", VariantID: strptr("V1"), RequestedQty: 5},
		},
	}
}

func TestCreateIssuesUnguessableToken(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	require.NotEmpty(t, q.Token)
	_, err = uuid.Parse(q.Token)
	require.NoError(t, err)
	require.Equal(t, StatusPending, q.Status)
	require.Equal(t, testNow.Add(7*24*time.Hour), q.TokenExpiresAt)
	require.Equal(t, "quotes@acme.example", *q.VendorEmail)
	require.Len(t, q.Items, 2)
	for _, item := range q.Items {
		require.Nil(t, item.VendorPrice)
	}

	other, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	require.NotEqual(t, q.Token, other.Token)
}

func TestCreateHonoursCustomExpiry(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	minutes := 30
	req := createRequest()
	req.TokenExpiryMinutes = &minutes

	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, testNow.Add(30*time.Minute), q.TokenExpiresAt)
}

func TestCreateRejectsDuplicateItemKeys(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	req := createRequest()
	req.Items = []CreateItemRequest{
		{ProductID: "P1", VariantID: strptr("V1"), RequestedQty: 1},
		{ProductID: "P1", VariantID: strptr("V1"), RequestedQty: 3},
	}

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	// Nothing persisted.
	require.Empty(t, repo.byID)
}

func TestCreateAllowsSameProductDifferentVariant(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	req := createRequest()
	req.Items = []CreateItemRequest{
		{ProductID: "P1", VariantID: strptr("V1"), RequestedQty: 1},
		{ProductID: "P1", VariantID: strptr("V2"), RequestedQty: 1},
		{ProductID: "P1", RequestedQty: 1},
	}

	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, q.Items, 3)
}

func TestCreateAcceptsUnnamedVendor(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	req := createRequest()
	req.VendorName = nil
	req.VendorEmail = nil

	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, q.VendorName)
	require.Nil(t, q.VendorEmail)

	stored, err := svc.GetByToken(context.Background(), q.Token)
	require.NoError(t, err)
	require.Nil(t, stored.VendorName)
	require.Nil(t, stored.VendorEmail)
}

func TestGetByTokenDistinguishesDenials(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetByToken(ctx, "no-such-token")
	require.ErrorIs(t, err, httpx.ErrNotFound)

	pending, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	got, err := svc.GetByToken(ctx, pending.Token)
	require.NoError(t, err)
	require.Equal(t, pending.ID, got.ID)

	minutes := 1
	expReq := createRequest()
	expReq.TokenExpiryMinutes = &minutes
	expired, err := svc.Create(ctx, expReq)
	require.NoError(t, err)
	late := NewService(repo, nil, time.Hour).WithClock(fixedClock(testNow.Add(2 * time.Minute)))
	_, err = late.GetByToken(ctx, expired.Token)
	require.ErrorIs(t, err, httpx.ErrExpired)

	_, err = svc.Submit(ctx, pending.Token, submitAll())
	require.NoError(t, err)
	_, err = svc.GetByToken(ctx, pending.Token)
	require.ErrorIs(t, err, httpx.ErrAlreadySubmitted)
}

func submitAll() SubmitRequest {
	return SubmitRequest{Items: []SubmitItemRequest{
		{ProductID: "P1", VendorPrice: 100.50, VendorRemark: strptr("bulk discount applied")},
		{ProductID: "P1", VariantID: strptr("V1"), VendorPrice: 240},
	}}
}

func TestSubmitAppliesPricesAndFlips(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, q.Token, submitAll())
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Equal(t, testNow, *submitted.SubmittedAt)

	require.Equal(t, 100.50, *submitted.Items[0].VendorPrice)
	require.Equal(t, "bulk discount applied", *submitted.Items[0].VendorRemark)
	require.Equal(t, 240.0, *submitted.Items[1].VendorPrice)
	require.InDelta(t, 100.50*2+240*5, submitted.TotalAmount(), 0.001)
}

func TestSubmitSubsetLeavesOtherItemsUnpriced(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, q.Token, SubmitRequest{Items: []SubmitItemRequest{
		{ProductID: "P1", VendorPrice: 75},
	}})
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, submitted.Status)

	require.Equal(t, 75.0, *submitted.Items[0].VendorPrice)
	// The unanswered variant line keeps its null price through the flip.
	require.Equal(t, "P1::V1", submitted.Items[1].Key())
	require.Nil(t, submitted.Items[1].VendorPrice)
	require.Nil(t, submitted.Items[1].VendorRemark)
	require.InDelta(t, 75.0*2, submitted.TotalAmount(), 0.001)
}

func TestSubmitValidatesBeforeWriting(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, q.Token, SubmitRequest{Items: []SubmitItemRequest{
		{ProductID: "P1", VendorPrice: 0},
	}})
	require.ErrorIs(t, err, httpx.ErrValidation)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	remark := string(long)
	_, err = svc.Submit(ctx, q.Token, SubmitRequest{Items: []SubmitItemRequest{
		{ProductID: "P1", VendorPrice: 10, VendorRemark: &remark},
	}})
	require.ErrorIs(t, err, httpx.ErrValidation)

	// Both rejections happened before any write.
	fresh, err := svc.GetByToken(ctx, q.Token)
	require.NoError(t, err)
	require.Equal(t, StatusPending, fresh.Status)
}

func TestSubmitSecondAttemptDenied(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, q.Token, submitAll())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, q.Token, submitAll())
	require.ErrorIs(t, err, httpx.ErrAlreadySubmitted)
}

func TestSubmitExpiredToken(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	minutes := 1
	req := createRequest()
	req.TokenExpiryMinutes = &minutes
	q, err := svc.Create(ctx, req)
	require.NoError(t, err)

	late := NewService(repo, nil, time.Hour).WithClock(fixedClock(testNow.Add(time.Hour)))
	_, err = late.Submit(ctx, q.Token, submitAll())
	require.ErrorIs(t, err, httpx.ErrExpired)
}

func TestConcurrentSubmitExactlyOneWinner(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, q.Token, submitAll())
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, httpx.ErrAlreadySubmitted)
	}
	require.Equal(t, 1, winners)
}

func TestUpdateStatusRequiresPrincipal(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, q.ID, StatusApproved, shared.Principal{})
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestUpdateStatusRecordsAudit(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := newTestService(repo, audit)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, q.ID, StatusRejected, shared.Principal{ID: "admin-7"})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, updated.Status)

	require.Len(t, audit.records, 1)
	require.Equal(t, "admin-7", audit.records[0].ActorID)
	require.Equal(t, "quote_request.status_change", audit.records[0].Action)
	require.Equal(t, q.ID.String(), audit.records[0].EntityID)
}

func TestUpdateStatusWarnsOnAuditFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &failingAudit{err: errors.New("audit store down")})
	var logs bytes.Buffer
	svc.WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	// The status change itself still succeeds.
	updated, err := svc.UpdateStatus(ctx, q.ID, StatusApproved, shared.Principal{ID: "admin-3"})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)

	require.Contains(t, logs.String(), "audit record dropped")
	require.Contains(t, logs.String(), "audit store down")
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), Status("archived"), shared.Principal{ID: "admin-1"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateStatusMissingRequest(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), StatusApproved, shared.Principal{ID: "admin-1"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListRejectsLateStatuses(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	status := StatusApproved
	_, _, err := svc.List(context.Background(), ListFilter{Status: &status})
	require.ErrorIs(t, err, httpx.ErrValidation)

	status = StatusSubmitted
	_, _, err = svc.List(context.Background(), ListFilter{Status: &status})
	require.NoError(t, err)
}

func TestSubmitPropagatesRepoError(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	repo.failNext = errors.New("connection reset")
	_, err = svc.Submit(ctx, q.Token, submitAll())
	require.EqualError(t, err, "connection reset")
}
