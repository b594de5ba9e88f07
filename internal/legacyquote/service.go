package legacyquote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/basket"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/ratelimit"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// AuditRecorder persists admin action records.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo    Repository
	basket  basket.Reader
	limiter *ratelimit.Limiter
	audit   AuditRecorder
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, basketReader basket.Reader, limiter *ratelimit.Limiter, audit AuditRecorder) *Service {
	return &Service{
		repo:    repo,
		basket:  basketReader,
		limiter: limiter,
		audit:   audit,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
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

// Submit records a vendor quote for a basket item. Submissions are capped per
// IP; product display fields are enriched from the basket when the item is
// known, otherwise the caller-supplied values stand.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, ipAddress string) (*VendorQuote, error) {
	decision, err := s.limiter.TryConsume(ctx, ipAddress)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &httpx.RateLimitError{RetryAfter: decision.RetryAfter}
	}

	productName := req.ProductName
	productImage := req.ProductImage
	// Enrichment is best effort; an unknown item or a flaky basket lookup
	// must not block the submission.
	if item, err := s.basket.Get(ctx, req.ItemID); err == nil {
		productName = &item.ProductName
		productImage = item.ProductImage
	}

	return s.repo.Create(ctx, VendorQuote{
		ItemID:       req.ItemID,
		ProductName:  productName,
		ProductImage: productImage,
		VendorName:   req.VendorName,
		VendorEmail:  strings.ToLower(strings.TrimSpace(req.VendorEmail)),
		VendorPhone:  req.VendorPhone,
		QuotedPrice:  req.QuotedPrice,
		Remarks:      req.Remarks,
		Status:       StatusPending,
		IPAddress:    ipAddress,
		SubmittedAt:  s.now(),
	})
}

// QuotesForItem returns the live quotes for an item, cheapest first, plus
// summary statistics.
func (s *Service) QuotesForItem(ctx context.Context, itemID string) ([]VendorQuote, ItemStats, error) {
	quotes, err := s.repo.ListForItem(ctx, itemID)
	if err != nil {
		return nil, ItemStats{}, err
	}

	stats := ItemStats{Count: len(quotes)}
	if len(quotes) > 0 {
		stats.LowestPrice = quotes[0].QuotedPrice
		var sum float64
		for _, q := range quotes {
			sum += q.QuotedPrice
		}
		stats.AveragePrice = sum / float64(len(quotes))
	}
	return quotes, stats, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*VendorQuote, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]VendorQuote, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", *filter.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a quote between review states and stamps the audit
// fields with the acting admin.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest, actor shared.Principal) (*VendorQuote, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", req.Status, httpx.ErrValidation)
	}
	if actor.ID == "" {
		return nil, fmt.Errorf("status change requires an authenticated admin: %w", httpx.ErrUnauthorized)
	}

	matched, err := s.repo.UpdateStatus(ctx, id, req, actor.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("vendor quote: %w", httpx.ErrNotFound)
	}
	s.recordAudit(ctx, actor, "vendor_quote.status_change", id.String(), map[string]any{"status": req.Status})
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, actor shared.Principal) (*VendorQuote, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("notes change requires an authenticated admin: %w", httpx.ErrUnauthorized)
	}
	matched, err := s.repo.UpdateNotes(ctx, id, notes, actor.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("vendor quote: %w", httpx.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) BulkUpdateStatus(ctx context.Context, req BulkStatusRequest, actor shared.Principal) (int, error) {
	if !req.Status.Valid() {
		return 0, fmt.Errorf("unknown status %q: %w", req.Status, httpx.ErrValidation)
	}
	if actor.ID == "" {
		return 0, fmt.Errorf("bulk update requires an authenticated admin: %w", httpx.ErrUnauthorized)
	}
	updated, err := s.repo.BulkUpdateStatus(ctx, req.IDs, req.Status, actor.ID, s.now())
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actor, "vendor_quote.bulk_status_change", fmt.Sprintf("%d ids", len(req.IDs)), map[string]any{
		"status":  req.Status,
		"updated": updated,
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor shared.Principal) error {
	if actor.ID == "" {
		return fmt.Errorf("delete requires an authenticated admin: %w", httpx.ErrUnauthorized)
	}
	matched, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("vendor quote: %w", httpx.ErrNotFound)
	}
	s.recordAudit(ctx, actor, "vendor_quote.delete", id.String(), nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Principal, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	// Audit is best effort, but a dropped record must be visible.
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "vendor_quote",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record dropped",
			slog.String("action", action),
			slog.String("entity_id", entityID),
			slog.Any("error", err))
	}
}
