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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userCols = `id, telegram_id, name, username, language_code, is_premium, request_count, request_limit, first_request_at, task_points, invited_count, is_banned, is_unlimited, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Name, &u.Username, &u.LanguageCode, &u.IsPremium,
		&u.RequestCount, &u.RequestLimit, &u.FirstRequestAt,
		&u.TaskPoints, &u.InvitedCount, &u.IsBanned, &u.IsUnlimited,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE telegram_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", telegramID)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, telegram_id, name, username, language_code, is_premium, request_count, request_limit, first_request_at, task_points, invited_count, is_banned, is_unlimited, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
ON CONFLICT (id) DO UPDATE SET
  telegram_id=$2, name=$3, username=$4, language_code=$5, is_premium=$6,
  request_count=$7, request_limit=$8, first_request_at=$9,
  task_points=$10, invited_count=$11, is_banned=$12, is_unlimited=$13, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.TelegramID, u.Name, u.Username, u.LanguageCode, u.IsPremium,
		u.RequestCount, u.RequestLimit, u.FirstRequestAt,
		u.TaskPoints, u.InvitedCount, u.IsBanned, u.IsUnlimited,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) ResetExpiredQuota(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE users
   SET request_count = 0, first_request_at = NULL, updated_at = NOW()
 WHERE is_unlimited = FALSE
   AND first_request_at IS NOT NULL
   AND first_request_at < $1;`
	cmd, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
