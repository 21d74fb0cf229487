// File: internal/usecase/effect_engine.go
package usecase

import (
	"context"
	"time"

	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
)

// EffectEngine applies and reverses a product's effect list on a user's quota
// record. Both paths persist the mutated record through the caller's tx, so
// the quota change commits (or aborts) together with the ledger transition.
type EffectEngine struct {
	users repository.UserRepository
}

func NewEffectEngine(users repository.UserRepository) *EffectEngine {
	return &EffectEngine{users: users}
}

func (e *EffectEngine) Apply(ctx context.Context, tx repository.Tx, u *model.User, effects []model.Effect, now time.Time) error {
	model.ApplyEffects(u, effects, now)
	return e.users.Save(ctx, tx, u)
}

func (e *EffectEngine) Reverse(ctx context.Context, tx repository.Tx, u *model.User, effects []model.Effect, refundedAt time.Time) error {
	model.ReverseEffects(u, effects, refundedAt)
	return e.users.Save(ctx, tx, u)
}
