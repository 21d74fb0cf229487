package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentCols = `id, user_id, product_id, product_name, product_description, product_price, status, invoice_payload, invoice_url, provider_charge_id, created_at, updated_at, paid_at, refunded_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.ProductID,
		&p.ProductName, &p.ProductDescription, &p.ProductPrice,
		&p.Status, &p.InvoicePayload, &p.InvoiceURL, &p.ProviderChargeID,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.RefundedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindLastPaid(ctx context.Context, tx repository.Tx, userID, productID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE user_id=$1 AND product_id=$2 AND status='paid' ORDER BY paid_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, productID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindLastPaidLadder(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	const q = `
SELECT p.id, p.user_id, p.product_id, p.product_name, p.product_description, p.product_price, p.status, p.invoice_payload, p.invoice_url, p.provider_charge_id, p.created_at, p.updated_at, p.paid_at, p.refunded_at
  FROM payments p
  JOIN products pr ON pr.id = p.product_id
 WHERE p.user_id=$1 AND p.status='paid' AND pr.type='ladder'
 ORDER BY p.paid_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// findLive is the read half of UpsertPending: the newest PENDING row, or a
// PAID one no earlier than paidSince (nil widens to any paid row).
func (r *paymentRepo) findLive(ctx context.Context, tx repository.Tx, userID, productID string, paidSince *time.Time) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments
 WHERE user_id=$1 AND product_id=$2
   AND (status='pending' OR (status='paid' AND ($3::timestamptz IS NULL OR paid_at >= $3)))
 ORDER BY created_at DESC LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID, productID, paidSince)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) UpsertPending(ctx context.Context, tx repository.Tx, draft *model.Payment, paidSince *time.Time) (*model.Payment, error) {
	existing, err := r.findLive(ctx, tx, draft.UserID, draft.ProductID, paidSince)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, err
	}

	// DO NOTHING instead of surfacing 23505: a raised unique violation
	// would abort the surrounding transaction and kill the re-read. The
	// caller runs this at ReadCommitted, so the follow-up findLive takes a
	// fresh snapshot and sees the winner's committed row.
	const ins = `
INSERT INTO payments (id, user_id, product_id, product_name, product_description, product_price, status, invoice_payload, invoice_url, provider_charge_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,'pending','','','',NOW(),NOW())
ON CONFLICT (user_id, product_id) WHERE status = 'pending' DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, ins, draft.ID, draft.UserID, draft.ProductID, draft.ProductName, draft.ProductDescription, draft.ProductPrice)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		// A concurrent request won the race on the live-pending unique
		// index; its row is the one we wanted anyway.
		return r.findLive(ctx, tx, draft.UserID, draft.ProductID, paidSince)
	}
	return r.FindByID(ctx, tx, draft.ID)
}

func (r *paymentRepo) SetInvoice(ctx context.Context, tx repository.Tx, id, payload, url string, price int64) error {
	const q = `UPDATE payments SET invoice_payload=$2, invoice_url=$3, product_price=$4, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, payload, url, price)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepo) MarkPaid(ctx context.Context, tx repository.Tx, id, chargeID string, paidAt time.Time, finalPrice int64) error {
	const q = `
UPDATE payments
   SET status='paid', provider_charge_id=$2, paid_at=$3, product_price=$4, updated_at=NOW()
 WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, chargeID, paidAt, finalPrice)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a duplicate callback from a phantom payment id.
		if _, ferr := r.FindByID(ctx, tx, id); ferr != nil {
			return ferr
		}
		return domain.ErrAlreadySettled
	}
	return nil
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string, refundedAt time.Time) error {
	const q = `
UPDATE payments
   SET status='refunded', refunded_at=$2, updated_at=NOW()
 WHERE id=$1 AND status='paid';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, refundedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		if _, ferr := r.FindByID(ctx, tx, id); ferr != nil {
			return ferr
		}
		return domain.ErrNotSettled
	}
	return nil
}

func (r *paymentRepo) IsPaid(ctx context.Context, tx repository.Tx, userID, productID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments WHERE user_id=$1 AND product_id=$2 AND status='paid');`
	row, err := pickRow(ctx, r.pool, tx, q, userID, productID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}

func (r *paymentRepo) IsPaidOrRefunded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `SELECT status FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	var status model.PaymentStatus
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrPaymentNotFound
		}
		return false, domain.ErrReadDatabaseRow
	}
	return status != model.PaymentStatusPending, nil
}
