// Package reporting builds the admin-facing views over both quote schemas:
// the per-order vendor comparison rollup, the normalized single/multi quote
// detail, CSV export and the statistics summary.
package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/legacyquote"
	"github.com/quotedesk/quotedesk/internal/quoterequest"
)

// QuoteType discriminates which schema backed a normalized quote view.
type QuoteType string

const (
	QuoteTypeSingle QuoteType = "single"
	QuoteTypeMulti  QuoteType = "multi"
)

// VendorQuoteView is the tagged union over the two quote schemas. Exactly one
// of Single/Multi is set, matching Type.
type VendorQuoteView struct {
	Type   QuoteType
	Single *legacyquote.VendorQuote
	Multi  *quoterequest.QuoteRequest
}

// ProductLine is the uniform per-product shape both schemas normalize to.
type ProductLine struct {
	ProductID    string   `json:"productId"`
	ProductName  *string  `json:"productName,omitempty"`
	ProductImage *string  `json:"productImage,omitempty"`
	VariantName  *string  `json:"variantName,omitempty"`
	Quantity     int      `json:"quantity"`
	VendorPrice  *float64 `json:"vendorPrice"`
	TotalPrice   float64  `json:"totalPrice"`
	VendorRemark *string  `json:"vendorRemark,omitempty"`
}

// QuoteDetail is the normalized reporting shape. Callers never need to know
// which schema produced it.
type QuoteDetail struct {
	ID          uuid.UUID     `json:"id"`
	QuoteType   QuoteType     `json:"quoteType"`
	OrderID     *string       `json:"orderId,omitempty"`
	VendorName  *string       `json:"vendorName,omitempty"`
	VendorEmail *string       `json:"vendorEmail,omitempty"`
	VendorPhone *string       `json:"vendorPhone,omitempty"`
	Status      string        `json:"status"`
	TotalAmount float64       `json:"totalAmount"`
	Products    []ProductLine `json:"products"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Normalize folds either schema variant into the uniform detail shape.
func (v VendorQuoteView) Normalize() QuoteDetail {
	switch v.Type {
	case QuoteTypeMulti:
		return normalizeMulti(v.Multi)
	default:
		return normalizeSingle(v.Single)
	}
}

func normalizeMulti(q *quoterequest.QuoteRequest) QuoteDetail {
	orderID := q.OrderID
	detail := QuoteDetail{
		ID:          q.ID,
		QuoteType:   QuoteTypeMulti,
		OrderID:     &orderID,
		VendorName:  q.VendorName,
		VendorEmail: q.VendorEmail,
		Status:      string(q.Status),
		TotalAmount: q.TotalAmount(),
		SubmittedAt: q.SubmittedAt,
		CreatedAt:   q.CreatedAt,
	}
	for _, item := range q.Items {
		line := ProductLine{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.Image,
			VariantName:  item.VariantName,
			Quantity:     item.RequestedQty,
			VendorPrice:  item.VendorPrice,
			VendorRemark: item.VendorRemark,
		}
		if item.VendorPrice != nil {
			line.TotalPrice = *item.VendorPrice * float64(item.RequestedQty)
		}
		detail.Products = append(detail.Products, line)
	}
	return detail
}

func normalizeSingle(q *legacyquote.VendorQuote) QuoteDetail {
	vendorName := q.VendorName
	vendorEmail := q.VendorEmail
	price := q.QuotedPrice
	submittedAt := q.SubmittedAt
	return QuoteDetail{
		ID:          q.ID,
		QuoteType:   QuoteTypeSingle,
		VendorName:  &vendorName,
		VendorEmail: &vendorEmail,
		VendorPhone: q.VendorPhone,
		Status:      string(q.Status),
		TotalAmount: q.QuotedPrice,
		SubmittedAt: &submittedAt,
		CreatedAt:   q.SubmittedAt,
		Products: []ProductLine{{
			ProductID:    q.ItemID,
			ProductName:  q.ProductName,
			ProductImage: q.ProductImage,
			Quantity:     1,
			VendorPrice:  &price,
			TotalPrice:   price,
			VendorRemark: q.Remarks,
		}},
	}
}

// VendorQuoteEntry is one vendor's answer for a product inside an order
// rollup.
type VendorQuoteEntry struct {
	RequestID   uuid.UUID  `json:"requestId"`
	VendorName  *string    `json:"vendorName,omitempty"`
	VendorEmail *string    `json:"vendorEmail,omitempty"`
	Price       *float64   `json:"price"`
	Remark      *string    `json:"remark,omitempty"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// ProductGroup collects every vendor quote for one (product, variant) key.
type ProductGroup struct {
	ProductID    string             `json:"productId"`
	Name         *string            `json:"name,omitempty"`
	VariantName  *string            `json:"variantName,omitempty"`
	Image        *string            `json:"image,omitempty"`
	Quantity     int                `json:"quantity"`
	VendorQuotes []VendorQuoteEntry `json:"vendorQuotes"`
}

// OrderGroup is the per-order comparison view. ID and CreatedAt come from the
// most recently created contributing request.
type OrderGroup struct {
	ID        uuid.UUID      `json:"_id"`
	OrderID   string         `json:"orderId"`
	Products  []ProductGroup `json:"products"`
	CreatedAt time.Time      `json:"createdAt"`
}
