package repository

import (
	"context"
	"time"

	"telegram-prediction-backend/internal/domain/model"
)

// UserRepository looks up and persists user quota records. The record is
// shared with other subsystems, so writes happen inside the caller's tx with
// the row locked (repositories take FOR UPDATE when tx is a real handle).
type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByTelegramID(ctx context.Context, tx Tx, telegramID int64) (*model.User, error)
	Save(ctx context.Context, tx Tx, u *model.User) error

	// ResetExpiredQuota zeroes request_count for users whose quota window
	// opened before cutoff. Used by the periodic sweep; returns the number
	// of rows touched.
	ResetExpiredQuota(ctx context.Context, cutoff time.Time) (int64, error)
}
