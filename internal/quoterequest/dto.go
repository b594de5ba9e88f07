package quoterequest

type CreateItemRequest struct {
	ProductID    string  `json:"productId" validate:"required"`
	VariantID    *string `json:"variantId,omitempty"`
	ProductName  *string `json:"productName,omitempty"`
	VariantName  *string `json:"variantName,omitempty"`
	Image        *string `json:"image,omitempty"`
	RequestedQty int     `json:"requestedQty" validate:"required,gte=1"`
}

type CreateRequest struct {
	OrderID            string              `json:"orderId" validate:"required"`
	VendorID           *string             `json:"vendorId,omitempty"`
	VendorName         *string             `json:"vendorName,omitempty"`
	VendorEmail        *string             `json:"vendorEmail,omitempty" validate:"omitempty,email"`
	Items              []CreateItemRequest `json:"items" validate:"required,min=1,dive"`
	TokenExpiryMinutes *int                `json:"tokenExpiryMinutes,omitempty" validate:"omitempty,gt=0"`
}

// SubmitItemRequest carries one priced line from the vendor. Price must be
// strictly positive; a zero price is rejected, not treated as "free".
type SubmitItemRequest struct {
	ProductID    string  `json:"productId" validate:"required"`
	VariantID    *string `json:"variantId,omitempty"`
	VendorPrice  float64 `json:"vendorPrice" validate:"required,gt=0"`
	VendorRemark *string `json:"vendorRemark,omitempty" validate:"omitempty,max=500"`
}

type SubmitRequest struct {
	Items []SubmitItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// ListFilter narrows the admin listing. Status is restricted to pending and
// submitted; later admin states are reached through the reporting layer.
type ListFilter struct {
	OrderID *string
	Status  *Status
	Limit   int
	Offset  int
}
