// Package legacyquote implements the original single-item vendor quote path.
// It predates the token-gated multi-item requests and stays reachable
// directly by basket item id, guarded only by a per-IP submission cap.
package legacyquote

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// GSTRate is the fixed surcharge applied to quoted prices for display. The
// gross value is derived on read and never stored.
const GSTRate = 0.18

// VendorQuote is a standalone single-item price submission.
type VendorQuote struct {
	ID              uuid.UUID  `json:"id"`
	ItemID          string     `json:"itemId"`
	ProductName     *string    `json:"productName,omitempty"`
	ProductImage    *string    `json:"productImage,omitempty"`
	VendorName      string     `json:"vendorName"`
	VendorEmail     string     `json:"vendorEmail"`
	VendorPhone     *string    `json:"vendorPhone,omitempty"`
	QuotedPrice     float64    `json:"quotedPrice"`
	PriceWithGST    float64    `json:"quotedPriceWithGst"`
	Remarks         *string    `json:"remarks,omitempty"`
	AdminNotes      *string    `json:"adminNotes,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	Status          Status     `json:"status"`
	IPAddress       string     `json:"-"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	LastModifiedAt  *time.Time `json:"lastModifiedAt,omitempty"`
	LastModifiedBy  *string    `json:"lastModifiedBy,omitempty"`
}

// computeDerived fills read-only derived values after a scan.
func (q *VendorQuote) computeDerived() {
	q.PriceWithGST = q.QuotedPrice * (1 + GSTRate)
}

// ItemStats summarises the live quotes for one basket item.
type ItemStats struct {
	Count        int     `json:"count"`
	LowestPrice  float64 `json:"lowestPrice"`
	AveragePrice float64 `json:"averagePrice"`
}
