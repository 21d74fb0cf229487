package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/metrics"
)

// QuotaSweep periodically resets the daily request quota of users whose
// window has aged out. Purchases extend quota through effects; this worker
// is what brings it back down on schedule.
type QuotaSweep struct {
	interval time.Duration
	window   time.Duration
	users    repository.UserRepository
	log      *zerolog.Logger
}

func NewQuotaSweep(interval, window time.Duration, users repository.UserRepository, logger *zerolog.Logger) *QuotaSweep {
	l := logger.With().Str("component", "QuotaSweep").Logger()
	return &QuotaSweep{interval: interval, window: window, users: users, log: &l}
}

func (w *QuotaSweep) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("window", w.window).Msg("starting quota sweep")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping quota sweep")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-w.window)
			n, err := w.users.ResetExpiredQuota(ctx, cutoff)
			if err != nil {
				w.log.Error().Err(err).Msg("quota sweep error")
				continue
			}
			if n > 0 {
				metrics.AddQuotaResets(n)
				w.log.Info().Int64("count", n).Msg("quotas reset")
			}
		}
	}
}
