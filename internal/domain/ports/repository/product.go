package repository

import (
	"context"

	"telegram-prediction-backend/internal/domain/model"
)

// ProductRepository reads (and, for the admin surface, writes) the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Product, error)

	// FirstLadderRung returns the ladder product with no prev reference.
	FirstLadderRung(ctx context.Context, tx Tx) (*model.Product, error)

	// ListNonLadder returns default and daily products for the store view.
	ListNonLadder(ctx context.Context, tx Tx) ([]*model.Product, error)

	ListAll(ctx context.Context, tx Tx) ([]*model.Product, error)

	// Admin catalog surface.
	Save(ctx context.Context, tx Tx, p *model.Product) error
	Delete(ctx context.Context, tx Tx, id string) error
}
