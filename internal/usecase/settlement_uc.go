// File: internal/usecase/settlement_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/adapter"
	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/metrics"
)

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

// EventProductBuy is the realtime event emitted after a settled purchase.
const EventProductBuy = "product_buy"

// PaymentCallback carries one provider callback's fields into settlement.
type PaymentCallback struct {
	RawPayload string
	Amount     int64
	ChargeID   string
	ChatID     int64
	FirstName  string
}

// SideEffects is the post-commit side-effect queue. Settlement success is
// never coupled to notification success: enqueue failures and job failures
// are logged, not propagated.
type SideEffects interface {
	Enqueue(name string, fn func(ctx context.Context) error) error
}

// SettlementUseCase processes the provider's asynchronous callbacks:
// pre-checkout validation, successful-payment settlement and refund reversal.
// Callbacks are at-least-once; every path is written so a redelivery after an
// abort can still succeed.
type SettlementUseCase interface {
	// HandlePreCheckout answers the provider's synchronous validation. A nil
	// return approves the checkout; a non-nil error declines it with a
	// machine-safe reason (domain.ReasonOf).
	HandlePreCheckout(ctx context.Context, rawPayload string, amount int64) error
	HandleSuccessfulPayment(ctx context.Context, cb PaymentCallback) error
	HandleRefund(ctx context.Context, cb PaymentCallback) error
}

type settlementUC struct {
	users    repository.UserRepository
	products repository.ProductRepository
	payments repository.PaymentRepository
	catalog  CatalogUseCase
	store    StoreUseCase
	effects  *EffectEngine
	tm       repository.TransactionManager
	queue    SideEffects
	notifier adapter.Notifier
	realtime adapter.RealtimeBroadcaster
	dev      bool
	log      *zerolog.Logger
}

func NewSettlementUseCase(
	users repository.UserRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	catalog CatalogUseCase,
	store StoreUseCase,
	effects *EffectEngine,
	tm repository.TransactionManager,
	queue SideEffects,
	notifier adapter.Notifier,
	realtime adapter.RealtimeBroadcaster,
	dev bool,
	logger *zerolog.Logger,
) *settlementUC {
	l := logger.With().Str("component", "SettlementUC").Logger()
	return &settlementUC{
		users:    users,
		products: products,
		payments: payments,
		catalog:  catalog,
		store:    store,
		effects:  effects,
		tm:       tm,
		queue:    queue,
		notifier: notifier,
		realtime: realtime,
		dev:      dev,
		log:      &l,
	}
}

func (uc *settlementUC) HandlePreCheckout(ctx context.Context, rawPayload string, amount int64) error {
	err := uc.preCheckout(ctx, rawPayload, amount)
	if err != nil {
		metrics.IncPreCheckout(domain.ReasonOf(err))
		return err
	}
	metrics.IncPreCheckout("approved")
	return nil
}

// preCheckout runs tx-less reads only: the provider enforces a short
// synchronous deadline, so this path is bounded and fails closed.
func (uc *settlementUC) preCheckout(ctx context.Context, rawPayload string, amount int64) error {
	payload, err := model.ParseInvoicePayload(rawPayload)
	if err != nil {
		return err
	}

	settled, err := uc.payments.IsPaidOrRefunded(ctx, nil, payload.PaymentID)
	if err != nil {
		return err
	}
	if settled {
		return domain.ErrAlreadySettled
	}

	user, err := uc.users.FindByID(ctx, nil, payload.UserID)
	if err != nil {
		return err
	}
	product, err := uc.products.FindByID(ctx, nil, payload.ProductID)
	if err != nil {
		return err
	}

	// Guards against price drift between invoice issuance and payment.
	expected, err := uc.catalog.Price(product, user)
	if err != nil {
		return err
	}
	if uc.dev {
		expected = 1
	}
	if amount != expected {
		uc.log.Warn().
			Str("payment_id", payload.PaymentID).
			Int64("submitted", amount).
			Int64("expected", expected).
			Msg("pre-checkout amount mismatch")
		return domain.ErrAmountMismatch
	}

	return uc.store.CheckPurchasable(ctx, user, product)
}

func (uc *settlementUC) HandleSuccessfulPayment(ctx context.Context, cb PaymentCallback) error {
	paidAt := time.Now()

	payload, err := model.ParseInvoicePayload(cb.RawPayload)
	if err != nil {
		return err
	}

	var (
		user           *model.User
		product        *model.Product
		nextProduct    *model.Product
		alreadySettled bool
	)
	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		user, err = uc.users.FindByID(ctx, tx, payload.UserID)
		if err != nil {
			return err
		}
		product, err = uc.products.FindByID(ctx, tx, payload.ProductID)
		if err != nil {
			return err
		}
		if product.Next != nil {
			nextProduct, err = uc.products.FindBySlug(ctx, tx, *product.Next)
			if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
				return err
			}
			err = nil
		}

		err = uc.payments.MarkPaid(ctx, tx, payload.PaymentID, cb.ChargeID, paidAt, cb.Amount)
		if errors.Is(err, domain.ErrAlreadySettled) {
			// Duplicate delivery: the effect was already applied once.
			alreadySettled = true
			return nil
		}
		if err != nil {
			return err
		}

		return uc.effects.Apply(ctx, tx, user, product.Effects, paidAt)
	})
	if err != nil {
		// Logged with enough context for manual reconciliation; the row is
		// still PENDING, so the provider's redelivery can succeed.
		uc.log.Error().Err(err).
			Str("payload", cb.RawPayload).
			Str("charge_id", cb.ChargeID).
			Msg("settlement failed")
		metrics.IncSettlement("paid", "failed")
		return err
	}
	if alreadySettled {
		uc.log.Info().Str("payment_id", payload.PaymentID).Msg("duplicate settlement callback ignored")
		metrics.IncSettlement("paid", "duplicate")
		return nil
	}

	metrics.IncSettlement("paid", "ok")
	metrics.AddRevenue(starsCurrency, cb.Amount)
	uc.enqueuePurchaseEffects(payload.UserID, user, product, nextProduct, cb, paidAt)
	return nil
}

// purchaseEvent mirrors the mini-app's product_buy contract.
type purchaseEvent struct {
	BuyedProduct       *model.Product   `json:"buyedProduct"`
	PaidAt             time.Time        `json:"payedAt"`
	NextProduct        *model.Product   `json:"nextProduct,omitempty"`
	RecalculatedPrices map[string]int64 `json:"recalculatedPrices,omitempty"`
}

func (uc *settlementUC) enqueuePurchaseEffects(userID string, user *model.User, product, nextProduct *model.Product, cb PaymentCallback, paidAt time.Time) {
	event := purchaseEvent{BuyedProduct: product, PaidAt: paidAt, NextProduct: nextProduct}
	// Buying a plus_* product moves the dynamic price of the daily reset;
	// push the recalculated price so the store view updates live.
	if strings.HasPrefix(product.Slug, "plus") {
		if daily, err := uc.products.FindBySlug(context.Background(), nil, slugDailyReset); err == nil {
			if price, err := uc.catalog.Price(daily, user); err == nil {
				event.RecalculatedPrices = map[string]int64{slugDailyReset: price}
			}
		}
	}

	if err := uc.queue.Enqueue("purchase-broadcast", func(ctx context.Context) error {
		uc.realtime.Broadcast(userID, EventProductBuy, event)
		return nil
	}); err != nil {
		uc.log.Error().Err(err).Msg("enqueue purchase broadcast")
	}

	receipt := adapter.Receipt{
		ChatID:      cb.ChatID,
		FirstName:   cb.FirstName,
		ProductName: product.Name,
		ChargeID:    cb.ChargeID,
		Amount:      cb.Amount,
	}
	if err := uc.queue.Enqueue("purchase-receipt", func(ctx context.Context) error {
		return uc.notifier.SendPurchaseReceipt(ctx, receipt)
	}); err != nil {
		uc.log.Error().Err(err).Msg("enqueue purchase receipt")
	}
}

func (uc *settlementUC) HandleRefund(ctx context.Context, cb PaymentCallback) error {
	refundedAt := time.Now()

	payload, err := model.ParseInvoicePayload(cb.RawPayload)
	if err != nil {
		return err
	}

	var (
		product         *model.Product
		alreadyRefunded bool
	)
	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(ctx context.Context, tx repository.Tx) error {
		user, err := uc.users.FindByID(ctx, tx, payload.UserID)
		if err != nil {
			return err
		}
		product, err = uc.products.FindByID(ctx, tx, payload.ProductID)
		if err != nil {
			return err
		}

		payment, err := uc.payments.FindByID(ctx, tx, payload.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status == model.PaymentStatusRefunded {
			alreadyRefunded = true
			return nil
		}

		if err := uc.payments.MarkRefunded(ctx, tx, payload.PaymentID, refundedAt); err != nil {
			return err
		}
		return uc.effects.Reverse(ctx, tx, user, product.Effects, refundedAt)
	})
	if err != nil {
		uc.log.Error().Err(err).
			Str("payload", cb.RawPayload).
			Str("charge_id", cb.ChargeID).
			Msg("refund settlement failed")
		metrics.IncSettlement("refund", "failed")
		return err
	}
	if alreadyRefunded {
		uc.log.Info().Str("payment_id", payload.PaymentID).Msg("duplicate refund callback ignored")
		metrics.IncSettlement("refund", "duplicate")
		return nil
	}

	metrics.IncSettlement("refund", "ok")
	receipt := adapter.Receipt{
		ChatID:      cb.ChatID,
		FirstName:   cb.FirstName,
		ProductName: product.Name,
		ChargeID:    cb.ChargeID,
		Amount:      cb.Amount,
	}
	if err := uc.queue.Enqueue("refund-notice", func(ctx context.Context) error {
		return uc.notifier.SendRefundNotice(ctx, receipt)
	}); err != nil {
		uc.log.Error().Err(err).Msg("enqueue refund notice")
	}
	return nil
}
