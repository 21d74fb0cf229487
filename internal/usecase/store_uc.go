// File: internal/usecase/store_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/adapter"
	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/metrics"
)

// Compile-time check
var _ StoreUseCase = (*storeUC)(nil)

// starsCurrency is the provider currency code for Telegram Stars invoices.
const starsCurrency = "XTR"

// invoiceLockTTL bounds how long a doubly-tapped buy button can hold the
// per-(user,product) lock if a process dies mid-mint.
const invoiceLockTTL = 15 * time.Second

// StoreUseCase is the invoice orchestrator: the policy layer deciding, per
// product type, whether an invoice may be issued or a pending checkout may
// proceed.
type StoreUseCase interface {
	// GetStore assembles the mini-app store view: purchasable products plus
	// the user's current ladder step.
	GetStore(ctx context.Context, u *model.User) (*StoreView, error)
	// GetInvoice finds-or-creates the pending payment row and returns its
	// invoice link. Repeated calls return the same link.
	GetInvoice(ctx context.Context, u *model.User, productID string) (string, error)
	// CheckPurchasable re-runs the type-specific purchase preconditions
	// without creating anything. Shared with the pre-checkout validator.
	CheckPurchasable(ctx context.Context, u *model.User, p *model.Product) error
}

type StoreView struct {
	Products []*model.StoreProduct `json:"products"`
}

// Locker serializes invoice minting per (user, product). The concrete
// implementation lives in infra/redis.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type storeUC struct {
	products repository.ProductRepository
	payments repository.PaymentRepository
	catalog  CatalogUseCase
	provider adapter.PaymentProvider
	tm       repository.TransactionManager
	locker   Locker
	window   time.Duration
	dev      bool // dev mode mints 1-Star invoices so test purchases stay cheap
	log      *zerolog.Logger
}

func NewStoreUseCase(
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	catalog CatalogUseCase,
	provider adapter.PaymentProvider,
	tm repository.TransactionManager,
	locker Locker,
	window time.Duration,
	dev bool,
	logger *zerolog.Logger,
) *storeUC {
	if window <= 0 {
		window = 24 * time.Hour
	}
	l := logger.With().Str("component", "StoreUC").Logger()
	return &storeUC{
		products: products,
		payments: payments,
		catalog:  catalog,
		provider: provider,
		tm:       tm,
		locker:   locker,
		window:   window,
		dev:      dev,
		log:      &l,
	}
}

func (uc *storeUC) GetStore(ctx context.Context, u *model.User) (*StoreView, error) {
	products, err := uc.catalog.ListPurchasable(ctx, u)
	if err != nil {
		return nil, err
	}
	step, err := uc.catalog.CurrentLadderStep(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &StoreView{Products: append(products, step)}, nil
}

func (uc *storeUC) GetInvoice(ctx context.Context, u *model.User, productID string) (string, error) {
	product, err := uc.products.FindByID(ctx, nil, productID)
	if err != nil {
		return "", err
	}

	switch product.Type {
	case model.ProductTypeDefault, model.ProductTypeDaily:
	case model.ProductTypeLadder:
		if err := uc.ensurePrevPaid(ctx, u, product); err != nil {
			return "", err
		}
	default:
		return "", domain.ErrInvalidProductType
	}

	price, err := uc.catalog.Price(product, u)
	if err != nil {
		return "", err
	}

	// Belt over the DB uniqueness guarantee: a doubly-tapped buy button
	// serializes here instead of racing two provider mints.
	lockKey := fmt.Sprintf("invoice:%s:%s", u.ID, product.ID)
	token, err := uc.locker.TryLock(ctx, lockKey, invoiceLockTTL)
	if err != nil {
		return "", err
	}
	defer func() { _ = uc.locker.Unlock(ctx, lockKey, token) }()

	// ReadCommitted, not RepeatableRead: when a concurrent insert wins the
	// race on the live-pending index, the retry-as-read inside UpsertPending
	// must be able to see the winner's committed row.
	var payment *model.Payment
	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		draft := &model.Payment{
			ID:                 uuid.NewString(),
			UserID:             u.ID,
			ProductID:          product.ID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			ProductPrice:       price,
			Status:             model.PaymentStatusPending,
		}
		p, err := uc.payments.UpsertPending(ctx, tx, draft, uc.paidSince(product))
		if err != nil {
			return err
		}
		if p.Status == model.PaymentStatusPaid {
			if product.Type == model.ProductTypeDaily {
				return domain.ErrAlreadyPurchasedToday
			}
			return domain.ErrAlreadyPurchased
		}
		payment = p
		return nil
	})
	if err != nil {
		metrics.IncInvoiceRequest(string(product.Type), "rejected")
		return "", err
	}

	if payment.InvoiceURL != "" {
		if payment.ProductPrice == price {
			// An earlier request already minted the link; this call is a read.
			metrics.IncInvoiceRequest(string(product.Type), "reused")
			return payment.InvoiceURL, nil
		}
		// The buyer's quota moved since the link was minted, so the old
		// amount would never pass the pre-checkout price check. Mint a
		// fresh link on the same payment row.
		uc.log.Info().
			Str("payment_id", payment.ID).
			Int64("minted", payment.ProductPrice).
			Int64("current", price).
			Msg("invoice price drifted, re-minting")
	}

	payload, err := model.InvoicePayload{
		UserID:    u.ID,
		ProductID: product.ID,
		PaymentID: payment.ID,
	}.Encode()
	if err != nil {
		return "", err
	}

	amount := price
	if uc.dev {
		amount = 1
	}
	url, err := uc.provider.CreateInvoiceLink(ctx, adapter.InvoiceSpec{
		Title:       product.Name,
		Description: product.Description,
		Payload:     payload,
		Currency:    starsCurrency,
		Amount:      amount,
		Label:       product.Name,
	})
	if err != nil {
		return "", err
	}

	if err := uc.payments.SetInvoice(ctx, nil, payment.ID, payload, url, price); err != nil {
		return "", err
	}
	metrics.IncInvoiceRequest(string(product.Type), "issued")
	uc.log.Info().Str("user_id", u.ID).Str("product", product.Slug).Str("payment_id", payment.ID).Msg("invoice issued")
	return url, nil
}

func (uc *storeUC) CheckPurchasable(ctx context.Context, u *model.User, p *model.Product) error {
	switch p.Type {
	case model.ProductTypeDefault:
		return uc.ensureNotPaid(ctx, u, p, domain.ErrAlreadyPurchased)
	case model.ProductTypeDaily:
		last, err := uc.payments.FindLastPaid(ctx, nil, u.ID, p.ID)
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if last.PaidAt != nil && time.Since(*last.PaidAt) <= uc.window {
			return domain.ErrAlreadyPurchasedToday
		}
		return nil
	case model.ProductTypeLadder:
		if err := uc.ensurePrevPaid(ctx, u, p); err != nil {
			return err
		}
		return uc.ensureNotPaid(ctx, u, p, domain.ErrAlreadyPurchased)
	default:
		return domain.ErrInvalidProductType
	}
}

func (uc *storeUC) ensureNotPaid(ctx context.Context, u *model.User, p *model.Product, conflict error) error {
	paid, err := uc.payments.IsPaid(ctx, nil, u.ID, p.ID)
	if err != nil {
		return err
	}
	if paid {
		return conflict
	}
	return nil
}

func (uc *storeUC) ensurePrevPaid(ctx context.Context, u *model.User, p *model.Product) error {
	if p.Prev == nil {
		return nil
	}
	prev, err := uc.products.FindBySlug(ctx, nil, *p.Prev)
	if err != nil {
		return err
	}
	paid, err := uc.payments.IsPaid(ctx, nil, u.ID, prev.ID)
	if err != nil {
		return err
	}
	if !paid {
		return domain.ErrPreviousStepUnpaid
	}
	return nil
}

// paidSince returns the settlement-age cutoff that keeps an old PAID row
// counting as live. Nil means any non-refunded row blocks a new one; daily
// products shrink that to the repurchase window.
func (uc *storeUC) paidSince(p *model.Product) *time.Time {
	if p.Type != model.ProductTypeDaily {
		return nil
	}
	t := time.Now().Add(-uc.window)
	return &t
}
