package quoterequest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// AuditRecorder persists admin action records.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo            Repository
	audit           AuditRecorder
	defaultTokenTTL time.Duration
	logger          *slog.Logger
	now             func() time.Time
	newToken        func() string
}

func NewService(repo Repository, audit AuditRecorder, defaultTokenTTL time.Duration) *Service {
	return &Service{
		repo:            repo,
		audit:           audit,
		defaultTokenTTL: defaultTokenTTL,
		logger:          slog.Default(),
		now:             func() time.Time { return time.Now().UTC() },
		// A random UUID carries 122 bits of entropy, which is what makes the
		// token an unguessable credential.
		newToken: uuid.NewString,
	}
}

// WithClock overrides the clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Create validates the item set, issues a fresh access token and persists the
// request in pending state with all prices unset.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*QuoteRequest, error) {
	seen := make(map[string]struct{}, len(req.Items))
	items := make([]Item, 0, len(req.Items))
	for _, itemReq := range req.Items {
		if itemReq.ProductID == "" {
			return nil, fmt.Errorf("item is missing productId: %w", httpx.ErrValidation)
		}
		if itemReq.RequestedQty < 1 {
			return nil, fmt.Errorf("item %s has non-positive quantity: %w", itemReq.ProductID, httpx.ErrValidation)
		}
		key := ItemKey(itemReq.ProductID, itemReq.VariantID)
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateItem
		}
		seen[key] = struct{}{}
		items = append(items, Item{
			ProductID:    itemReq.ProductID,
			VariantID:    itemReq.VariantID,
			ProductName:  itemReq.ProductName,
			VariantName:  itemReq.VariantName,
			Image:        itemReq.Image,
			RequestedQty: itemReq.RequestedQty,
		})
	}

	ttl := s.defaultTokenTTL
	if req.TokenExpiryMinutes != nil {
		ttl = time.Duration(*req.TokenExpiryMinutes) * time.Minute
	}

	var vendorEmail *string
	if req.VendorEmail != nil {
		lowered := strings.ToLower(strings.TrimSpace(*req.VendorEmail))
		vendorEmail = &lowered
	}

	return s.repo.Create(ctx, QuoteRequest{
		OrderID:        req.OrderID,
		VendorID:       req.VendorID,
		VendorName:     req.VendorName,
		VendorEmail:    vendorEmail,
		Items:          items,
		Status:         StatusPending,
		Token:          s.newToken(),
		TokenExpiresAt: s.now().Add(ttl),
	})
}

// Resolve looks up a request by token and classifies its validity.
func (s *Service) Resolve(ctx context.Context, token string) (Resolution, error) {
	q, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return Resolution{}, err
	}
	return resolveAt(q, s.now()), nil
}

// GetByToken returns the request for a vendor holding a valid token. Expired
// and consumed tokens are denied distinguishably even though the document
// still exists.
func (s *Service) GetByToken(ctx context.Context, token string) (*QuoteRequest, error) {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if res.AlreadySubmitted {
		return nil, httpx.ErrAlreadySubmitted
	}
	if res.Expired {
		return nil, httpx.ErrExpired
	}
	return res.Request, nil
}

// Submit applies vendor prices to the request behind the token and flips it
// to submitted. The flip is a conditional single-row update, so when two
// vendors race on the same token exactly one wins and the loser observes
// AlreadySubmitted.
func (s *Service) Submit(ctx context.Context, token string, req SubmitRequest) (*QuoteRequest, error) {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if res.AlreadySubmitted {
		return nil, httpx.ErrAlreadySubmitted
	}
	if res.Expired {
		return nil, httpx.ErrExpired
	}

	// Validate the full payload before any write.
	values := make(map[string]SubmittedValue, len(req.Items))
	for _, itemReq := range req.Items {
		if itemReq.ProductID == "" {
			return nil, fmt.Errorf("submitted item is missing productId: %w", httpx.ErrValidation)
		}
		if itemReq.VendorPrice <= 0 {
			return nil, fmt.Errorf("submitted item %s requires a positive price: %w", itemReq.ProductID, httpx.ErrValidation)
		}
		if itemReq.VendorRemark != nil && len(*itemReq.VendorRemark) > 500 {
			return nil, fmt.Errorf("remark for item %s exceeds 500 characters: %w", itemReq.ProductID, httpx.ErrValidation)
		}
		values[ItemKey(itemReq.ProductID, itemReq.VariantID)] = SubmittedValue{
			Price:  itemReq.VendorPrice,
			Remark: itemReq.VendorRemark,
		}
	}

	matched, err := s.repo.Submit(ctx, token, values, s.now())
	if err != nil {
		return nil, err
	}
	if !matched {
		// The conditional update found no pending row: either someone beat
		// us to it or the token lapsed between resolve and update.
		return nil, s.classifyNoMatch(ctx, token)
	}

	return s.repo.GetByToken(ctx, token)
}

func (s *Service) classifyNoMatch(ctx context.Context, token string) error {
	res, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if res.AlreadySubmitted {
		return httpx.ErrAlreadySubmitted
	}
	return httpx.ErrExpired
}

// List returns paged requests for admins, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]QuoteRequest, int, error) {
	if filter.Status != nil && *filter.Status != StatusPending && *filter.Status != StatusSubmitted {
		return nil, 0, fmt.Errorf("list filter accepts pending or submitted, got %q: %w", *filter.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a request between admin states. Any value inside the
// enumeration is accepted; the source system never constrained the graph.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor shared.Principal) (*QuoteRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, httpx.ErrValidation)
	}
	if actor.ID == "" {
		return nil, fmt.Errorf("status change requires an authenticated admin: %w", httpx.ErrUnauthorized)
	}

	matched, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("quote request: %w", httpx.ErrNotFound)
	}

	if s.audit != nil {
		// Audit is best effort, but a dropped record must be visible.
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "quote_request.status_change",
			Entity:   "quote_request",
			EntityID: id.String(),
			Meta:     map[string]any{"status": status},
		}); err != nil {
			s.logger.Warn("audit record dropped",
				slog.String("action", "quote_request.status_change"),
				slog.String("entity_id", id.String()),
				slog.Any("error", err))
		}
	}

	return s.repo.GetByID(ctx, id)
}
