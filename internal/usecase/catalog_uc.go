// File: internal/usecase/catalog_uc.go
package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// dynamicPriceUnitRate is the inverse-commission divisor for dynamically
// priced products: price = round(request_limit / rate).
const dynamicPriceUnitRate = 0.02

// slugDailyReset is the only slug with a dynamic pricing rule today.
const slugDailyReset = "daily_requests_reset"

type CatalogUseCase interface {
	GetByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error)
	GetBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Product, error)
	// Price resolves what the buyer pays right now: the static catalog
	// price, or the dynamic one derived from their quota record.
	Price(p *model.Product, u *model.User) (int64, error)
	// ListPurchasable returns non-ladder products annotated with canBuy.
	ListPurchasable(ctx context.Context, u *model.User) ([]*model.StoreProduct, error)
	// CurrentLadderStep returns the next unpurchased rung for the user, or
	// the last rung flagged fully-purchased when the chain is exhausted.
	CurrentLadderStep(ctx context.Context, userID string) (*model.StoreProduct, error)
}

type catalogUC struct {
	products repository.ProductRepository
	payments repository.PaymentRepository
	window   time.Duration // daily repurchase window
	log      *zerolog.Logger
}

func NewCatalogUseCase(products repository.ProductRepository, payments repository.PaymentRepository, window time.Duration, logger *zerolog.Logger) *catalogUC {
	if window <= 0 {
		window = 24 * time.Hour
	}
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &catalogUC{products: products, payments: payments, window: window, log: &l}
}

func (uc *catalogUC) GetByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	return uc.products.FindByID(ctx, tx, id)
}

func (uc *catalogUC) GetBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Product, error) {
	return uc.products.FindBySlug(ctx, tx, slug)
}

func (uc *catalogUC) Price(p *model.Product, u *model.User) (int64, error) {
	if p.HasStaticPrice() {
		return *p.Price, nil
	}
	switch p.Slug {
	case slugDailyReset:
		if u == nil {
			return 0, domain.ErrInvalidArgument
		}
		return int64(math.Round(float64(u.RequestLimit) / dynamicPriceUnitRate)), nil
	default:
		return 0, domain.ErrUnknownPricingRule
	}
}

func (uc *catalogUC) ListPurchasable(ctx context.Context, u *model.User) ([]*model.StoreProduct, error) {
	products, err := uc.products.ListNonLadder(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]*model.StoreProduct, 0, len(products))
	for _, p := range products {
		price, err := uc.Price(p, u)
		if err != nil {
			return nil, err
		}

		sp := &model.StoreProduct{Product: *p, ResolvedPrice: price}
		last, err := uc.payments.FindLastPaid(ctx, nil, u.ID, p.ID)
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			sp.CanBuy = true
		case err != nil:
			return nil, err
		default:
			sp.PaidAt = last.PaidAt
			if p.Type == model.ProductTypeDaily && last.PaidAt != nil {
				sp.CanBuy = time.Since(*last.PaidAt) > uc.window
			}
		}
		out = append(out, sp)
	}
	return out, nil
}

func (uc *catalogUC) CurrentLadderStep(ctx context.Context, userID string) (*model.StoreProduct, error) {
	last, err := uc.payments.FindLastPaidLadder(ctx, nil, userID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		// No ladder purchase yet: the chain starts at its first rung.
		first, err := uc.products.FirstLadderRung(ctx, nil)
		if err != nil {
			return nil, err
		}
		price, err := uc.Price(first, nil)
		if err != nil {
			return nil, err
		}
		return &model.StoreProduct{Product: *first, ResolvedPrice: price, CanBuy: true}, nil
	}
	if err != nil {
		return nil, err
	}

	paid, err := uc.products.FindByID(ctx, nil, last.ProductID)
	if err != nil {
		return nil, err
	}
	if paid.Next == nil {
		// Chain exhausted: report the final rung as fully purchased.
		price, err := uc.Price(paid, nil)
		if err != nil {
			return nil, err
		}
		return &model.StoreProduct{Product: *paid, ResolvedPrice: price, FullyPurchased: true, PaidAt: last.PaidAt}, nil
	}

	next, err := uc.products.FindBySlug(ctx, nil, *paid.Next)
	if err != nil {
		return nil, err
	}
	price, err := uc.Price(next, nil)
	if err != nil {
		return nil, err
	}
	return &model.StoreProduct{Product: *next, ResolvedPrice: price, CanBuy: true}, nil
}
