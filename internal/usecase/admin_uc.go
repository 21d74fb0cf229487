package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

var _ AdminCatalogUseCase = (*adminCatalogUC)(nil)

// AdminCatalogUseCase is the operator-facing catalog surface. It owns
// validation of catalog writes; everything else reads the catalog through
// CatalogUseCase.
type AdminCatalogUseCase interface {
	List(ctx context.Context) ([]*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, p *model.Product) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) (*model.Product, error)
	Delete(ctx context.Context, id string) error
}

type adminCatalogUC struct {
	products repository.ProductRepository
	log      *zerolog.Logger
}

func NewAdminCatalogUseCase(products repository.ProductRepository, logger *zerolog.Logger) *adminCatalogUC {
	l := logger.With().Str("component", "AdminCatalogUC").Logger()
	return &adminCatalogUC{products: products, log: &l}
}

func (uc *adminCatalogUC) List(ctx context.Context) ([]*model.Product, error) {
	return uc.products.ListAll(ctx, nil)
}

func (uc *adminCatalogUC) Get(ctx context.Context, id string) (*model.Product, error) {
	return uc.products.FindByID(ctx, nil, id)
}

func (uc *adminCatalogUC) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	if err := uc.products.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	uc.log.Info().Str("product", p.Slug).Msg("catalog entry created")
	return p, nil
}

func (uc *adminCatalogUC) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	// The row must exist; Save is an upsert and must not resurrect ids.
	if _, err := uc.products.FindByID(ctx, nil, p.ID); err != nil {
		return nil, err
	}
	if err := uc.products.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	uc.log.Info().Str("product", p.Slug).Msg("catalog entry updated")
	return p, nil
}

func (uc *adminCatalogUC) Delete(ctx context.Context, id string) error {
	if err := uc.products.Delete(ctx, nil, id); err != nil {
		return err
	}
	uc.log.Info().Str("product_id", id).Msg("catalog entry deleted")
	return nil
}

func validateProduct(p *model.Product) error {
	if p.Slug == "" || p.Name == "" {
		return domain.ErrInvalidArgument
	}
	switch p.Type {
	case model.ProductTypeDefault, model.ProductTypeDaily:
		if p.Prev != nil || p.Next != nil {
			return domain.ErrInvalidArgument
		}
	case model.ProductTypeLadder:
	default:
		return domain.ErrInvalidProductType
	}
	if p.Price != nil && *p.Price <= 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}
