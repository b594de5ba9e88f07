// Package basket provides read-only access to basket line items. The basket
// workflow itself is owned by another service; quotes only reference items by
// identifier to enrich vendor-facing display data.
package basket

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("basket item not found")

// Item is the subset of a basket line item this service reads.
type Item struct {
	ID           string
	ProductName  string
	ProductImage *string
}

// Reader looks up basket items by identifier.
type Reader interface {
	Get(ctx context.Context, itemID string) (*Item, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Reader backed by the basket_items table.
func NewRepository(pool *pgxpool.Pool) Reader {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_name, product_image FROM basket_items WHERE id = $1`,
		itemID,
	).Scan(&item.ID, &item.ProductName, &item.ProductImage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
