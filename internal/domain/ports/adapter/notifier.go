package adapter

import "context"

// Receipt carries everything a purchase/refund notification needs.
type Receipt struct {
	ChatID      int64
	FirstName   string
	ProductName string
	ChargeID    string
	Amount      int64
}

// Notifier delivers user-facing purchase confirmations and refund notices.
// All calls are post-commit and best-effort: a failure is logged by the
// caller, never propagated into the settlement.
type Notifier interface {
	SendPurchaseReceipt(ctx context.Context, r Receipt) error
	SendRefundNotice(ctx context.Context, r Receipt) error
}
