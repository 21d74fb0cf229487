package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // invoice issued, awaiting provider callback
	PaymentStatusPaid     PaymentStatus = "paid"     // successful-payment callback settled
	PaymentStatusRefunded PaymentStatus = "refunded" // refund callback reversed the purchase
)

// Payment is one purchase attempt. The product_* fields are snapshotted from
// the catalog when the invoice is first issued, so historical invoices stay
// stable across catalog edits. Status only ever moves forward:
// pending -> paid -> refunded.
type Payment struct {
	ID        string // UUID
	UserID    string // UUID
	ProductID string // UUID

	ProductName        string
	ProductDescription string
	ProductPrice       int64 // in Stars; final amount overwritten at settlement

	Status           PaymentStatus
	InvoicePayload   string // the opaque payload round-tripped through the provider
	InvoiceURL       string // redeemable invoice link minted at the provider
	ProviderChargeID string // set on settlement

	CreatedAt  time.Time
	UpdatedAt  time.Time
	PaidAt     *time.Time
	RefundedAt *time.Time
}
