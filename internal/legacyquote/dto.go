package legacyquote

import "github.com/google/uuid"

type SubmitRequest struct {
	ItemID       string  `json:"itemId" validate:"required"`
	VendorName   string  `json:"vendorName" validate:"required,max=120"`
	VendorEmail  string  `json:"vendorEmail" validate:"required,email"`
	VendorPhone  *string `json:"vendorPhone,omitempty" validate:"omitempty,e164"`
	QuotedPrice  float64 `json:"quotedPrice" validate:"gte=0"`
	Remarks      *string `json:"remarks,omitempty" validate:"omitempty,max=1000"`
	ProductName  *string `json:"productName,omitempty"`
	ProductImage *string `json:"productImage,omitempty"`
}

type UpdateStatusRequest struct {
	Status          Status  `json:"status" validate:"required"`
	AdminNotes      *string `json:"adminNotes,omitempty" validate:"omitempty,max=1000"`
	RejectionReason *string `json:"rejectionReason,omitempty" validate:"omitempty,max=1000"`
}

type UpdateNotesRequest struct {
	AdminNotes string `json:"adminNotes" validate:"required,max=1000"`
}

type BulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Status Status      `json:"status" validate:"required"`
}

type ListFilter struct {
	ItemID *string
	Status *Status
	Limit  int
	Offset int
}
