package legacyquote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// StatusCount is one row of the per-status breakdown used by reporting.
type StatusCount struct {
	Status Status
	Count  int
}

// Statistics is the aggregate summary over all legacy quotes.
type Statistics struct {
	Total        int
	ByStatus     []StatusCount
	LowestPrice  float64
	HighestPrice float64
	AveragePrice float64
}

type Repository interface {
	Create(ctx context.Context, q VendorQuote) (*VendorQuote, error)
	GetByID(ctx context.Context, id uuid.UUID) (*VendorQuote, error)
	// ListForItem returns non-rejected quotes for one basket item, cheapest
	// first.
	ListForItem(ctx context.Context, itemID string) ([]VendorQuote, error)
	List(ctx context.Context, filter ListFilter) ([]VendorQuote, int, error)
	ListAll(ctx context.Context) ([]VendorQuote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest, actor string, now time.Time) (bool, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string, actor string, now time.Time) (bool, error)
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status Status, actor string, now time.Time) (int, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Statistics(ctx context.Context) (*Statistics, error)

	// Rate limiter backing queries (ratelimit.CountStore).
	CountSince(ctx context.Context, ip string, since time.Time) (int, error)
	OldestSince(ctx context.Context, ip string, since time.Time) (time.Time, bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const quoteColumns = `id, item_id, product_name, product_image, vendor_name, vendor_email, vendor_phone, quoted_price, remarks, admin_notes, rejection_reason, status, ip_address, submitted_at, last_modified_at, last_modified_by`

func (r *repository) Create(ctx context.Context, q VendorQuote) (*VendorQuote, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO vendor_quotes (item_id, product_name, product_image, vendor_name, vendor_email, vendor_phone, quoted_price, remarks, status, ip_address, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, q.ItemID, q.ProductName, q.ProductImage, q.VendorName, q.VendorEmail, q.VendorPhone,
		q.QuotedPrice, q.Remarks, q.Status, q.IPAddress, q.SubmittedAt).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert vendor quote: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*VendorQuote, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM vendor_quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor quote: %w", httpx.ErrNotFound)
		}
		return nil, err
	}
	return q, nil
}

func (r *repository) ListForItem(ctx context.Context, itemID string) ([]VendorQuote, error) {
	return r.queryQuotes(ctx, `
		SELECT `+quoteColumns+` FROM vendor_quotes
		WHERE item_id = $1 AND status <> $2
		ORDER BY quoted_price ASC, submitted_at ASC
	`, itemID, StatusRejected)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]VendorQuote, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.ItemID != nil {
		conditions = append(conditions, fmt.Sprintf("item_id = $%d", argPos))
		args = append(args, *filter.ItemID)
		argPos++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM vendor_quotes %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vendor quotes: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	quotes, err := r.queryQuotes(ctx, fmt.Sprintf(`
		SELECT %s FROM vendor_quotes
		%s
		ORDER BY submitted_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, quoteColumns, whereClause, argPos, argPos+1), args...)
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]VendorQuote, error) {
	return r.queryQuotes(ctx, `SELECT `+quoteColumns+` FROM vendor_quotes ORDER BY submitted_at DESC, id DESC`)
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest, actor string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendor_quotes
		SET status = $1,
		    admin_notes = COALESCE($2, admin_notes),
		    rejection_reason = COALESCE($3, rejection_reason),
		    last_modified_at = $4,
		    last_modified_by = $5
		WHERE id = $6
	`, req.Status, req.AdminNotes, req.RejectionReason, now, actor, id)
	if err != nil {
		return false, fmt.Errorf("update vendor quote status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, actor string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendor_quotes
		SET admin_notes = $1, last_modified_at = $2, last_modified_by = $3
		WHERE id = $4
	`, notes, now, actor, id)
	if err != nil {
		return false, fmt.Errorf("update vendor quote notes: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status Status, actor string, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendor_quotes
		SET status = $1, last_modified_at = $2, last_modified_by = $3
		WHERE id = ANY($4)
	`, status, now, actor, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk update vendor quote status: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendor_quotes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete vendor quote: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(MIN(quoted_price), 0),
		       COALESCE(MAX(quoted_price), 0),
		       COALESCE(AVG(quoted_price), 0)
		FROM vendor_quotes
	`).Scan(&stats.Total, &stats.LowestPrice, &stats.HighestPrice, &stats.AveragePrice)
	if err != nil {
		return nil, fmt.Errorf("vendor quote statistics: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM vendor_quotes GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("vendor quote status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		stats.ByStatus = append(stats.ByStatus, sc)
	}
	return stats, rows.Err()
}

func (r *repository) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vendor_quotes WHERE ip_address = $1 AND submitted_at >= $2`,
		ip, since,
	).Scan(&count)
	return count, err
}

func (r *repository) OldestSince(ctx context.Context, ip string, since time.Time) (time.Time, bool, error) {
	var oldest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MIN(submitted_at) FROM vendor_quotes WHERE ip_address = $1 AND submitted_at >= $2`,
		ip, since,
	).Scan(&oldest)
	if err != nil {
		return time.Time{}, false, err
	}
	if oldest == nil {
		return time.Time{}, false, nil
	}
	return *oldest, true, nil
}

func (r *repository) queryQuotes(ctx context.Context, query string, args ...any) ([]VendorQuote, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vendor quotes: %w", err)
	}
	defer rows.Close()

	var quotes []VendorQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

func scanQuote(row pgx.Row) (*VendorQuote, error) {
	var q VendorQuote
	err := row.Scan(
		&q.ID, &q.ItemID, &q.ProductName, &q.ProductImage, &q.VendorName, &q.VendorEmail,
		&q.VendorPhone, &q.QuotedPrice, &q.Remarks, &q.AdminNotes, &q.RejectionReason,
		&q.Status, &q.IPAddress, &q.SubmittedAt, &q.LastModifiedAt, &q.LastModifiedBy,
	)
	if err != nil {
		return nil, err
	}
	q.computeDerived()
	return &q, nil
}
