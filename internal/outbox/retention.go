package outbox

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a retention cron expression cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid retention schedule")

// Retention periodically removes published outbox rows older than the
// configured age. Published rows are only kept to aid debugging, so the
// sweep runs on a coarse cron schedule rather than every dispatcher tick.
type Retention struct {
	pool     *pgxpool.Pool
	schedule cron.Schedule
	maxAge   time.Duration
}

// NewRetention parses the cron expression (standard 5-field format) and
// builds a sweeper that deletes published rows older than maxAge.
func NewRetention(pool *pgxpool.Pool, spec string, maxAge time.Duration) (*Retention, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}

	return &Retention{pool: pool, schedule: schedule, maxAge: maxAge}, nil
}

// Start launches the sweep loop. It should be called in a goroutine.
func (r *Retention) Start(ctx context.Context) {
	for {
		next := r.schedule.Next(time.Now())

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			if err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("outbox retention error: %v", err)
			}
		}
	}
}

// Sweep deletes published rows older than the retention window.
func (r *Retention) Sweep(ctx context.Context) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < $1`,
		time.Now().UTC().Add(-r.maxAge),
	)
	if err != nil {
		return err
	}

	if pruned := tag.RowsAffected(); pruned > 0 {
		prunedCounter.Add(float64(pruned))
		log.Printf("outbox retention: pruned %d published rows", pruned)
	}
	return nil
}
