package quoterequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// ErrDuplicateItem is returned when a create payload repeats a
// product/variant pair. Nothing is persisted in that case.
var ErrDuplicateItem = fmt.Errorf("request repeats a product/variant pair: %w", httpx.ErrDuplicate)

const itemsKeyConstraint = "uq_quote_request_items_key"

// SubmittedValue is the vendor-supplied price and remark for one item key.
type SubmittedValue struct {
	Price  float64
	Remark *string
}

type Repository interface {
	Create(ctx context.Context, q QuoteRequest) (*QuoteRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*QuoteRequest, error)
	GetByToken(ctx context.Context, token string) (*QuoteRequest, error)
	List(ctx context.Context, filter ListFilter) ([]QuoteRequest, int, error)
	ListAll(ctx context.Context) ([]QuoteRequest, error)
	// Submit atomically flips a pending, unexpired request to submitted and
	// applies the vendor values. It reports false without touching anything
	// when the conditional update matches no row, which is how a losing
	// concurrent submitter learns the token was already consumed.
	Submit(ctx context.Context, token string, values map[string]SubmittedValue, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, now time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	// CountExpiredPending reports how many pending requests hold a token that
	// expired before the given instant. Expiry is enforced at read time; this
	// only feeds the sweep job's reporting.
	CountExpiredPending(ctx context.Context, before time.Time) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const requestColumns = `id, order_id, vendor_id, vendor_name, vendor_email, status, token, token_expires_at, submitted_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, q QuoteRequest) (*QuoteRequest, error) {
	var id uuid.UUID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quote_requests (order_id, vendor_id, vendor_name, vendor_email, status, token, token_expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, q.OrderID, q.VendorID, q.VendorName, q.VendorEmail, q.Status, q.Token, q.TokenExpiresAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert quote request: %w", err)
		}

		for i, item := range q.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO quote_request_items (request_id, product_id, variant_id, product_name, variant_name, image, requested_qty, line_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, id, item.ProductID, item.VariantID, item.ProductName, item.VariantName, item.Image, item.RequestedQty, i+1)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.ConstraintName == itemsKeyConstraint {
					return ErrDuplicateItem
				}
				return fmt.Errorf("insert quote request item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*QuoteRequest, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM quote_requests WHERE id = $1`, id)
}

func (r *repository) GetByToken(ctx context.Context, token string) (*QuoteRequest, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM quote_requests WHERE token = $1`, token)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*QuoteRequest, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	q, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote request: %w", httpx.ErrNotFound)
		}
		return nil, err
	}
	if err := r.loadItems(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]QuoteRequest, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.OrderID != nil {
		conditions = append(conditions, fmt.Sprintf("order_id = $%d", argPos))
		args = append(args, *filter.OrderID)
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quote_requests %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quote requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM quote_requests
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	requests, err := r.queryRequests(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]QuoteRequest, error) {
	return r.queryRequests(ctx, `SELECT `+requestColumns+` FROM quote_requests ORDER BY created_at DESC, id DESC`)
}

func (r *repository) queryRequests(ctx context.Context, query string, args ...any) ([]QuoteRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quote requests: %w", err)
	}
	defer rows.Close()

	var requests []QuoteRequest
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		if err := r.loadItems(ctx, &requests[i]); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *repository) Submit(ctx context.Context, token string, values map[string]SubmittedValue, now time.Time) (bool, error) {
	matched := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE quote_requests
			SET status = $1, submitted_at = $2, updated_at = $2
			WHERE token = $3 AND status = $4 AND token_expires_at > $2
			RETURNING id
		`, StatusSubmitted, now, token, StatusPending).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("flip quote request status: %w", err)
		}
		matched = true

		for key, value := range values {
			productID, variantKey := splitItemKey(key)
			_, err := tx.Exec(ctx, `
				UPDATE quote_request_items
				SET vendor_price = $1, vendor_remark = $2
				WHERE request_id = $3 AND product_id = $4 AND COALESCE(variant_id, '') = $5
			`, value.Price, value.Remark, id, productID, variantKey)
			if err != nil {
				return fmt.Errorf("apply vendor price: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quote_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("update quote request status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM quote_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count quote requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *repository) CountExpiredPending(ctx context.Context, before time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quote_requests WHERE status = $1 AND token_expires_at < $2`,
		StatusPending, before,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expired pending requests: %w", err)
	}
	return count, nil
}

func (r *repository) loadItems(ctx context.Context, q *QuoteRequest) error {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, variant_id, product_name, variant_name, image, requested_qty, vendor_price, vendor_remark
		FROM quote_request_items
		WHERE request_id = $1
		ORDER BY line_order
	`, q.ID)
	if err != nil {
		return fmt.Errorf("query quote request items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ProductID, &item.VariantID, &item.ProductName, &item.VariantName,
			&item.Image, &item.RequestedQty, &item.VendorPrice, &item.VendorRemark,
		); err != nil {
			return err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	q.Items = items
	return nil
}

func scanRequest(row pgx.Row) (*QuoteRequest, error) {
	var q QuoteRequest
	err := row.Scan(
		&q.ID, &q.OrderID, &q.VendorID, &q.VendorName, &q.VendorEmail,
		&q.Status, &q.Token, &q.TokenExpiresAt, &q.SubmittedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func splitItemKey(key string) (productID, variantKey string) {
	if idx := strings.Index(key, "::"); idx >= 0 {
		return key[:idx], key[idx+2:]
	}
	return key, ""
}
