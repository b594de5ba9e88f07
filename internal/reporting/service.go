package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quotedesk/quotedesk/internal/legacyquote"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quoterequest"
)

// MultiStore is the slice of the quote request repository reporting reads.
type MultiStore interface {
	ListAll(ctx context.Context) ([]quoterequest.QuoteRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*quoterequest.QuoteRequest, error)
	CountByStatus(ctx context.Context) (map[quoterequest.Status]int, error)
}

// LegacyStore is the slice of the legacy quote repository reporting reads.
type LegacyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*legacyquote.VendorQuote, error)
	ListAll(ctx context.Context) ([]legacyquote.VendorQuote, error)
	Statistics(ctx context.Context) (*legacyquote.Statistics, error)
}

type Service struct {
	multi   MultiStore
	legacy  LegacyStore
	cache   *Cache
	rebuild singleflight.Group
	printer *message.Printer
}

func NewService(multi MultiStore, legacy LegacyStore, cache *Cache) *Service {
	return &Service{
		multi:  multi,
		legacy: legacy,
		cache:  cache,
		// Quoted amounts are rupee values; en-IN gives lakh/crore grouping.
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
}

// GroupedByOrder returns the vendor comparison rollup, served from cache when
// fresh. Concurrent cache misses share a single rebuild.
func (s *Service) GroupedByOrder(ctx context.Context) ([]OrderGroup, error) {
	if groups, hit, err := s.cache.GetGrouped(ctx); err == nil && hit {
		return groups, nil
	}
	result, err, _ := s.rebuild.Do("grouped", func() (any, error) {
		groups, err := s.buildGrouped(ctx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetGrouped(ctx, groups)
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]OrderGroup), nil
}

// RefreshGrouped recomputes the rollup and overwrites the cache. Used by the
// warmup job.
func (s *Service) RefreshGrouped(ctx context.Context) ([]OrderGroup, error) {
	groups, err := s.buildGrouped(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetGrouped(ctx, groups); err != nil {
		return nil, fmt.Errorf("cache grouped rollup: %w", err)
	}
	return groups, nil
}

// buildGrouped folds every quote request, newest first, into one entry per
// order. Each order maps (product, variant) keys to the vendor quotes that
// answered for them; the newest contributing request supplies the order's
// display id and createdAt.
func (s *Service) buildGrouped(ctx context.Context) ([]OrderGroup, error) {
	requests, err := s.multi.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load quote requests: %w", err)
	}

	groups := []OrderGroup{}
	orderIndex := make(map[string]int)
	productIndex := make(map[string]map[string]int)

	for _, req := range requests {
		idx, seen := orderIndex[req.OrderID]
		if !seen {
			idx = len(groups)
			orderIndex[req.OrderID] = idx
			productIndex[req.OrderID] = make(map[string]int)
			groups = append(groups, OrderGroup{
				ID:        req.ID,
				OrderID:   req.OrderID,
				CreatedAt: req.CreatedAt,
			})
		} else if req.CreatedAt.After(groups[idx].CreatedAt) {
			groups[idx].ID = req.ID
			groups[idx].CreatedAt = req.CreatedAt
		}

		for _, item := range req.Items {
			key := item.Key()
			products := productIndex[req.OrderID]
			pIdx, ok := products[key]
			if !ok {
				pIdx = len(groups[idx].Products)
				products[key] = pIdx
				groups[idx].Products = append(groups[idx].Products, ProductGroup{
					ProductID:   item.ProductID,
					Name:        item.ProductName,
					VariantName: item.VariantName,
					Image:       item.Image,
					Quantity:    item.RequestedQty,
				})
			} else {
				group := &groups[idx].Products[pIdx]
				if group.Name == nil && item.ProductName != nil {
					group.Name = item.ProductName
				}
				if group.Image == nil && item.Image != nil {
					group.Image = item.Image
				}
			}

			groups[idx].Products[pIdx].VendorQuotes = append(groups[idx].Products[pIdx].VendorQuotes, VendorQuoteEntry{
				RequestID:   req.ID,
				VendorName:  req.VendorName,
				VendorEmail: req.VendorEmail,
				Price:       item.VendorPrice,
				Remark:      item.VendorRemark,
				Status:      string(req.Status),
				SubmittedAt: req.SubmittedAt,
			})
		}
	}

	return groups, nil
}

// GetQuoteByID resolves an id against both schemas, multi-item first, and
// returns the normalized detail.
func (s *Service) GetQuoteByID(ctx context.Context, id uuid.UUID) (QuoteDetail, error) {
	multi, err := s.multi.GetByID(ctx, id)
	if err == nil {
		return VendorQuoteView{Type: QuoteTypeMulti, Multi: multi}.Normalize(), nil
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		return QuoteDetail{}, err
	}

	single, err := s.legacy.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return QuoteDetail{}, fmt.Errorf("quote: %w", httpx.ErrNotFound)
		}
		return QuoteDetail{}, err
	}
	return VendorQuoteView{Type: QuoteTypeSingle, Single: single}.Normalize(), nil
}

// LegacySummary is the statistics block over the legacy schema.
type LegacySummary struct {
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"byStatus"`
	LowestPrice         float64        `json:"lowestPrice"`
	HighestPrice        float64        `json:"highestPrice"`
	AveragePrice        float64        `json:"averagePrice"`
	AveragePriceDisplay string         `json:"averagePriceDisplay"`
}

// MultiSummary reports request counts by status for the multi-item schema.
type MultiSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// Summary is the combined statistics response.
type Summary struct {
	Legacy LegacySummary `json:"legacy"`
	Multi  MultiSummary  `json:"multiItem"`
}

// Statistics summarises both schemas. The legacy block mirrors the original
// export; the multi-item block only counts requests per status. The two
// schemas are queried concurrently.
func (s *Service) Statistics(ctx context.Context) (*Summary, error) {
	var (
		legacyStats *legacyquote.Statistics
		multiCounts map[quoterequest.Status]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		legacyStats, err = s.legacy.Statistics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		multiCounts, err = s.multi.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	legacy := LegacySummary{
		Total:               legacyStats.Total,
		ByStatus:            make(map[string]int, len(legacyStats.ByStatus)),
		LowestPrice:         legacyStats.LowestPrice,
		HighestPrice:        legacyStats.HighestPrice,
		AveragePrice:        legacyStats.AveragePrice,
		AveragePriceDisplay: s.formatAmount(legacyStats.AveragePrice),
	}
	for _, sc := range legacyStats.ByStatus {
		legacy.ByStatus[string(sc.Status)] = sc.Count
	}

	multi := MultiSummary{ByStatus: make(map[string]int, len(multiCounts))}
	for status, count := range multiCounts {
		multi.ByStatus[string(status)] = count
		multi.Total += count
	}

	return &Summary{Legacy: legacy, Multi: multi}, nil
}

func (s *Service) formatAmount(v float64) string {
	return s.printer.Sprintf("%.2f", v)
}
