//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
)

func TestCatalogPrice(t *testing.T) {
	products := newCatalogFixture()
	payments := newMemPayments(products)
	uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

	t.Run("static price comes from the catalog", func(t *testing.T) {
		p := mustBySlug(products, "plus_ten_requests")
		got, err := uc.Price(p, newTestUser())
		if err != nil {
			t.Fatalf("Price: %v", err)
		}
		if got != 50 {
			t.Fatalf("price = %d, want 50", got)
		}
	})

	t.Run("dynamic price is request_limit over the unit rate", func(t *testing.T) {
		p := mustBySlug(products, "daily_requests_reset")
		u := newTestUser()
		u.RequestLimit = 60
		got, err := uc.Price(p, u)
		if err != nil {
			t.Fatalf("Price: %v", err)
		}
		if got != 3000 { // round(60 / 0.02)
			t.Fatalf("price = %d, want 3000", got)
		}
	})

	t.Run("dynamic price without a user is invalid", func(t *testing.T) {
		p := mustBySlug(products, "daily_requests_reset")
		if _, err := uc.Price(p, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("priceless product without a rule fails", func(t *testing.T) {
		p := &model.Product{Slug: "mystery_box", Type: model.ProductTypeDefault}
		if _, err := uc.Price(p, newTestUser()); !errors.Is(err, domain.ErrUnknownPricingRule) {
			t.Fatalf("err = %v, want ErrUnknownPricingRule", err)
		}
	})
}

func TestCurrentLadderStep(t *testing.T) {
	ctx := context.Background()

	t.Run("no ladder purchase yet starts at the first rung", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		step, err := uc.CurrentLadderStep(ctx, newTestUser().ID)
		if err != nil {
			t.Fatalf("CurrentLadderStep: %v", err)
		}
		if step.Slug != "plus_ten_requests" || !step.CanBuy {
			t.Fatalf("step = %s canBuy=%v, want plus_ten_requests canBuy=true", step.Slug, step.CanBuy)
		}
	})

	t.Run("mid-chain purchase surfaces the next rung", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		u := newTestUser()
		payments.markPaidAt(u.ID, mustBySlug(products, "plus_ten_requests").ID, time.Now().Add(-time.Hour))

		step, err := uc.CurrentLadderStep(ctx, u.ID)
		if err != nil {
			t.Fatalf("CurrentLadderStep: %v", err)
		}
		if step.Slug != "plus_twenty_requests" || !step.CanBuy {
			t.Fatalf("step = %s canBuy=%v, want plus_twenty_requests canBuy=true", step.Slug, step.CanBuy)
		}
	})

	t.Run("exhausted chain reports the last rung fully purchased", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		u := newTestUser()
		payments.markPaidAt(u.ID, mustBySlug(products, "plus_fifty_requests").ID, time.Now().Add(-time.Hour))

		step, err := uc.CurrentLadderStep(ctx, u.ID)
		if err != nil {
			t.Fatalf("CurrentLadderStep: %v", err)
		}
		if step.Slug != "plus_fifty_requests" || !step.FullyPurchased || step.CanBuy {
			t.Fatalf("step = %+v, want plus_fifty_requests fullyPurchased", step)
		}
	})
}

func TestListPurchasable(t *testing.T) {
	ctx := context.Background()

	bySlug := func(t *testing.T, out []*model.StoreProduct, slug string) *model.StoreProduct {
		t.Helper()
		for _, sp := range out {
			if sp.Slug == slug {
				return sp
			}
		}
		t.Fatalf("product %s missing from %d listed", slug, len(out))
		return nil
	}

	t.Run("never-bought products are buyable", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		out, err := uc.ListPurchasable(ctx, newTestUser())
		if err != nil {
			t.Fatalf("ListPurchasable: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("len = %d, want 2 (daily + default)", len(out))
		}
		for _, sp := range out {
			if !sp.CanBuy {
				t.Fatalf("canBuy = false for %s, want true", sp.Slug)
			}
		}
	})

	t.Run("daily product inside the window is blocked, outside is open", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		u := newTestUser()
		daily := mustBySlug(products, "daily_requests_reset")
		row := payments.markPaidAt(u.ID, daily.ID, time.Now().Add(-2*time.Hour))

		out, err := uc.ListPurchasable(ctx, u)
		if err != nil {
			t.Fatalf("ListPurchasable: %v", err)
		}
		got := bySlug(t, out, "daily_requests_reset")
		if got.CanBuy {
			t.Fatalf("canBuy = true inside window, want false")
		}
		if got.PaidAt == nil || !got.PaidAt.Equal(*row.PaidAt) {
			t.Fatalf("paidAt = %v, want %v", got.PaidAt, row.PaidAt)
		}

		old := time.Now().Add(-25 * time.Hour)
		row.PaidAt = &old
		out, err = uc.ListPurchasable(ctx, u)
		if err != nil {
			t.Fatalf("ListPurchasable: %v", err)
		}
		if !bySlug(t, out, "daily_requests_reset").CanBuy {
			t.Fatalf("canBuy = false outside window, want true")
		}
	})

	t.Run("default product stays blocked after a lifetime purchase", func(t *testing.T) {
		products := newCatalogFixture()
		payments := newMemPayments(products)
		uc := NewCatalogUseCase(products, payments, 24*time.Hour, nopLogger())

		u := newTestUser()
		premium := mustBySlug(products, "premium_status")
		payments.markPaidAt(u.ID, premium.ID, time.Now().Add(-30*24*time.Hour))

		out, err := uc.ListPurchasable(ctx, u)
		if err != nil {
			t.Fatalf("ListPurchasable: %v", err)
		}
		got := bySlug(t, out, "premium_status")
		if got.CanBuy {
			t.Fatalf("canBuy = true for a bought lifetime product, want false")
		}
		if got.PaidAt == nil {
			t.Fatal("paidAt not surfaced")
		}
	})
}
