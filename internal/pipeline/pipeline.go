// Package pipeline keeps the selection fresh and publishes classified
// snapshots downstream.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/meteocat-episodes-service/internal/observability"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

// Refresher re-fetches the current selection and renders it.
// It is implemented by *selection.Selector.
type Refresher interface {
	Refresh(ctx context.Context) error
	Snapshot() selection.Snapshot
}

// Publisher writes a snapshot to a downstream sink.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap selection.Snapshot) error
}

// Pipeline orchestrates the refresh-and-publish loop.
type Pipeline struct {
	refresher Refresher
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	clock     clockwork.Clock
	ready     atomic.Bool
	changed   chan struct{}

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxRetries     uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock driving the refresh ticker.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithPublishBackoff sets the retry policy for failed publishes.
func WithPublishBackoff(initial, maxInterval time.Duration, maxRetries uint64) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = maxInterval
		p.maxRetries = maxRetries
	}
}

// New creates a Pipeline. publisher may be nil, in which case the pipeline
// only refreshes.
func New(r Refresher, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		refresher:      r,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		interval:       interval,
		clock:          clockwork.NewRealClock(),
		changed:        make(chan struct{}, 1),
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
		maxRetries:     5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a refresh has succeeded, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("episodes have not been loaded yet")
	}
	return nil
}

// Ready reports whether at least one refresh has succeeded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// SelectionChanged asks the loop to publish the current snapshot without
// waiting for the next refresh. It never blocks.
func (p *Pipeline) SelectionChanged() {
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on every interval until the context is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"interval", p.interval,
		"publishing", p.publisher != nil,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshAndPublish(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.refreshAndPublish(ctx)
		case <-p.changed:
			p.publish(ctx, p.refresher.Snapshot())
		}
	}
}

// refreshAndPublish runs one cycle. A failed refresh is not published.
func (p *Pipeline) refreshAndPublish(ctx context.Context) {
	if err := p.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("refresh failed", "error", err)
		return
	}
	p.ready.Store(true)
	p.publish(ctx, p.refresher.Snapshot())
}

// publish writes snap with exponential backoff. Errors are logged and counted.
func (p *Pipeline) publish(ctx context.Context, snap selection.Snapshot) {
	if p.publisher == nil {
		return
	}

	op := func() error {
		err := p.publisher.PublishSnapshot(ctx, snap)
		if err != nil {
			p.metrics.PublishErrors.Inc()
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("publish failed, retrying", "error", err, "backoff", wait)
	}

	if err := backoff.RetryNotify(op, p.newBackOff(ctx), notify); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("publish snapshot failed",
			"error", err,
			"date", snap.Date,
			"period", snap.SelectedPeriod,
		)
		return
	}
	p.metrics.SnapshotsPublished.Inc()
}

func (p *Pipeline) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialBackoff
	b.MaxInterval = p.maxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx)
}
