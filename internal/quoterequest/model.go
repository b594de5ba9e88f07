package quoterequest

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the quote request lifecycle. A request is created pending,
// flipped to submitted exactly once by the vendor, and afterwards only moved
// by admins.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Item is one order line inside a quote request. VendorPrice stays nil until
// the vendor submits.
type Item struct {
	ProductID    string   `json:"productId"`
	VariantID    *string  `json:"variantId,omitempty"`
	ProductName  *string  `json:"productName,omitempty"`
	VariantName  *string  `json:"variantName,omitempty"`
	Image        *string  `json:"image,omitempty"`
	RequestedQty int      `json:"requestedQty"`
	VendorPrice  *float64 `json:"vendorPrice"`
	VendorRemark *string  `json:"vendorRemark,omitempty"`
}

// Key returns the composite identity of the item within its request. The
// variant part is the empty string when the item has no variant.
func (i Item) Key() string {
	return ItemKey(i.ProductID, i.VariantID)
}

// ItemKey builds the productId::variantId composite key.
func ItemKey(productID string, variantID *string) string {
	variant := ""
	if variantID != nil {
		variant = *variantID
	}
	return productID + "::" + variant
}

// QuoteRequest is a token-gated invitation for one vendor to price a set of
// order line items.
type QuoteRequest struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        string     `json:"orderId"`
	VendorID       *string    `json:"vendorId,omitempty"`
	VendorName     *string    `json:"vendorName,omitempty"`
	VendorEmail    *string    `json:"vendorEmail,omitempty"`
	Items          []Item     `json:"items"`
	Status         Status     `json:"status"`
	Token          string     `json:"-"`
	TokenExpiresAt time.Time  `json:"tokenExpiresAt"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TotalAmount sums vendorPrice * requestedQty over priced items.
func (q *QuoteRequest) TotalAmount() float64 {
	var total float64
	for _, item := range q.Items {
		if item.VendorPrice != nil {
			total += *item.VendorPrice * float64(item.RequestedQty)
		}
	}
	return total
}
