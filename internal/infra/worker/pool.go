package worker

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/usecase"
)

// ErrQueueFull is returned when the job channel is saturated. Jobs are
// dropped rather than back-pressuring the settlement path.
var ErrQueueFull = errors.New("worker: queue full")

type job struct {
	id   string
	name string
	fn   func(ctx context.Context) error
}

var _ usecase.SideEffects = (*Pool)(nil)

// Pool runs post-commit side effects (receipts, broadcasts) on a fixed set
// of goroutines. Job failures are logged and never surfaced to the caller;
// the ledger transaction already committed by the time a job runs.
type Pool struct {
	wg      sync.WaitGroup
	jobs    chan job
	quit    chan struct{}
	n       int
	log     *zerolog.Logger
	entropy *ulid.MonotonicEntropy
	mu      sync.Mutex
}

func NewPool(workers int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		jobs:    make(chan job, workers*4),
		quit:    make(chan struct{}),
		n:       workers,
		log:     log,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case j := <-p.jobs:
					if j.fn == nil {
						continue
					}
					start := time.Now()
					if err := j.fn(ctx); err != nil {
						p.log.Error().Err(err).
							Str("job_id", j.id).
							Str("job", j.name).
							Msg("side effect failed")
						continue
					}
					p.log.Debug().
						Str("job_id", j.id).
						Str("job", j.name).
						Dur("took", time.Since(start)).
						Msg("side effect done")
				}
			}
		}()
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Enqueue(name string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("worker: nil job")
	}
	j := job{id: p.newID(), name: name, fn: fn}
	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) newID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}
