package repository

import (
	"context"
	"time"

	"telegram-prediction-backend/internal/domain/model"
)

// PaymentRepository is the system of record for purchase attempts. It owns
// the pending -> paid -> refunded state machine and every uniqueness and
// idempotency guarantee around it.
type PaymentRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)

	// FindLastPaid returns the most recent PAID payment for the pair
	// regardless of later refunds of other rows.
	FindLastPaid(ctx context.Context, tx Tx, userID, productID string) (*model.Payment, error)

	// FindLastPaidLadder returns the user's most recently paid ladder
	// payment joined against the catalog, for ladder-step resolution.
	FindLastPaidLadder(ctx context.Context, tx Tx, userID string) (*model.Payment, error)

	// UpsertPending atomically finds-or-creates the live payment row for
	// (draft.UserID, draft.ProductID). A row counts as live when it is
	// PENDING, or PAID no earlier than paidSince. paidSince == nil widens
	// that to any non-refunded row (DEFAULT and LADDER products); DAILY
	// products pass now-24h so an aged-out PAID row no longer blocks a
	// fresh purchase. Safe under concurrent invocation: the losing insert
	// degrades to a no-op and re-reads the winner's row; callers must run
	// it at ReadCommitted so that commit is visible.
	UpsertPending(ctx context.Context, tx Tx, draft *model.Payment, paidSince *time.Time) (*model.Payment, error)

	// SetInvoice snapshots the minted invoice reference and the amount it
	// was minted at onto the row, so repeated invoice requests are pure
	// reads until the buyer's price drifts.
	SetInvoice(ctx context.Context, tx Tx, id, payload, url string, price int64) error

	// MarkPaid transitions PENDING -> PAID. Any other current status fails
	// with domain.ErrAlreadySettled (duplicate-callback defense).
	MarkPaid(ctx context.Context, tx Tx, id, chargeID string, paidAt time.Time, finalPrice int64) error

	// MarkRefunded transitions PAID -> REFUNDED. Any other current status
	// fails with domain.ErrNotSettled.
	MarkRefunded(ctx context.Context, tx Tx, id string, refundedAt time.Time) error

	// IsPaid reports whether the pair has any PAID payment. Used for the
	// ladder prev-rung precondition.
	IsPaid(ctx context.Context, tx Tx, userID, productID string) (bool, error)

	// IsPaidOrRefunded reports whether the row has left PENDING. Used by
	// the pre-checkout validator to reject double submission.
	IsPaidOrRefunded(ctx context.Context, tx Tx, id string) (bool, error)
}
