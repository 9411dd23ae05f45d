// Package retention prunes aged events on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hookline/hookline/internal/store"
)

// Pruner deletes events older than the horizon whenever the cron schedule
// fires.
type Pruner struct {
	store    store.EventStore
	schedule cron.Schedule
	horizon  time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	now func() time.Time
}

// NewPruner creates a Pruner. The cron expression uses the standard
// five-field form; horizon must be positive.
func NewPruner(s store.EventStore, cronExpr string, horizon time.Duration, logger *slog.Logger) (*Pruner, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("retention horizon must be positive, got %s", horizon)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", cronExpr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:    s,
		schedule: schedule,
		horizon:  horizon,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start launches the background prune loop.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("pruner already started")
	}

	pruneCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(pruneCtx)
	p.logger.Info("retention pruner started", slog.Duration("horizon", p.horizon))
	return nil
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	for {
		next := p.schedule.Next(p.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes everything older than the horizon and reports how many
// rows went away.
func (p *Pruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.horizon)

	pruned, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		p.logger.ErrorContext(ctx, "prune failed", slog.String("error", err.Error()))
		return 0
	}
	if pruned > 0 {
		p.logger.InfoContext(ctx, "pruned aged events",
			slog.Int64("pruned", pruned),
			slog.Time("cutoff", cutoff))
		if err := p.store.Vacuum(ctx); err != nil {
			p.logger.WarnContext(ctx, "vacuum after prune failed", slog.String("error", err.Error()))
		}
	}
	return pruned
}

// Stop gracefully shuts down the pruner.
func (p *Pruner) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}

	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("retention pruner stopped")
	return nil
}
