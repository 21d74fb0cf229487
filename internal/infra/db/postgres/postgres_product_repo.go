package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

var _ repository.ProductRepository = (*productRepo)(nil)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

const productCols = `id, slug, name, description, type, price, prev_slug, next_slug, effects, created_at, updated_at`

func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var effects []byte
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Type,
		&p.Price, &p.Prev, &p.Next, &effects,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(effects) > 0 {
		if err := json.Unmarshal(effects, &p.Effects); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}

func (r *productRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Product, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1;`
	return r.findOne(ctx, tx, q, id)
}

func (r *productRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE slug=$1;`
	return r.findOne(ctx, tx, q, slug)
}

func (r *productRepo) FirstLadderRung(ctx context.Context, tx repository.Tx) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE type='ladder' AND prev_slug IS NULL LIMIT 1;`
	return r.findOne(ctx, tx, q)
}

func (r *productRepo) list(ctx context.Context, tx repository.Tx, q string) ([]*model.Product, error) {
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productRepo) ListNonLadder(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE type != 'ladder' ORDER BY created_at ASC;`
	return r.list(ctx, tx, q)
}

func (r *productRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products ORDER BY created_at ASC;`
	return r.list(ctx, tx, q)
}

func (r *productRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	effects, err := json.Marshal(p.Effects)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO products (id, slug, name, description, type, price, prev_slug, next_slug, effects, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
ON CONFLICT (id) DO UPDATE SET
  slug=$2, name=$3, description=$4, type=$5, price=$6, prev_slug=$7, next_slug=$8, effects=$9, updated_at=NOW();`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Slug, p.Name, p.Description, p.Type, p.Price, p.Prev, p.Next, effects); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM products WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
