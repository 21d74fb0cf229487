package adapter

import "context"

// InvoiceSpec describes one redeemable invoice to mint at the payment
// provider. Amount is in the provider's smallest unit (Stars).
type InvoiceSpec struct {
	Title       string
	Description string
	Payload     string // opaque, echoed back verbatim on callbacks
	Currency    string
	Amount      int64
	Label       string
}

// PaymentProvider mints invoice links at the chat platform's payment rails.
type PaymentProvider interface {
	CreateInvoiceLink(ctx context.Context, spec InvoiceSpec) (string, error)
}
