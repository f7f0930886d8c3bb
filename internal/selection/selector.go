// Package selection tracks which day and forecast period are on display and
// keeps the fetched episodes for that day.
//
// A Selector moves only through SelectDay, SelectPeriod and Refresh. Every
// fetch is tagged with a generation number; a result is applied only if no
// newer day selection or refresh started while it was in flight.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/observability"
)

// NoPeriod is the SelectedPeriod value when nothing is selected.
const NoPeriod = ""

// ErrInvalidDayOffset is returned by SelectDay for offsets outside [0, max].
var ErrInvalidDayOffset = errors.New("invalid day offset")

// Status describes the outcome of the latest fetch.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// State is the selection at one point in time.
type State struct {
	DayOffset        int
	Date             domain.Date
	AvailablePeriods []string
	SelectedPeriod   string
	Status           Status
	Err              string
	Generation       uint64
}

// HasPeriod reports whether a period is selected.
func (s State) HasPeriod() bool {
	return s.SelectedPeriod != NoPeriod
}

// Selector is the day/period selection state machine.
type Selector struct {
	source    domain.EpisodeSource
	location  *time.Location
	maxOffset int
	known     []int
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	state    State
	episodes []domain.Episode
}

// Option configures a Selector.
type Option func(*Selector)

// WithLocation sets the time zone whose midnight anchors day offsets.
func WithLocation(loc *time.Location) Option {
	return func(s *Selector) { s.location = loc }
}

// WithMaxDayOffset sets the largest offset SelectDay accepts. Default 1.
func WithMaxDayOffset(n int) Option {
	return func(s *Selector) { s.maxOffset = n }
}

// WithKnownRegions sets the region ids that always appear in snapshots.
func WithKnownRegions(ids []int) Option {
	return func(s *Selector) { s.known = slices.Clone(ids) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// New creates a Selector in the initial state: today, no period, idle.
func New(source domain.EpisodeSource, opts ...Option) *Selector {
	s := &Selector{
		source:    source,
		location:  time.UTC,
		maxOffset: 1,
		logger:    slog.Default(),
		state: State{
			AvailablePeriods: []string{},
			Status:           StatusIdle,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewUnregisteredMetrics()
	}
	return s
}

// SelectDay switches to local midnight of today plus offset days, fetches the
// episodes for that date and auto-selects the first available period. Fetch
// failures leave the selector in StatusFailed with no period; only an invalid
// offset is returned as an error.
func (s *Selector) SelectDay(ctx context.Context, offset int) error {
	if offset < 0 || offset > s.maxOffset {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidDayOffset, offset, s.maxOffset)
	}

	date := domain.DateOf(domain.DayStart(s.location, offset))

	s.mu.Lock()
	s.state.Generation++
	gen := s.state.Generation
	s.state.DayOffset = offset
	s.state.Date = date
	s.state.AvailablePeriods = []string{}
	s.state.SelectedPeriod = NoPeriod
	s.state.Status = StatusLoading
	s.state.Err = ""
	s.episodes = nil
	s.mu.Unlock()

	s.logger.Debug("day selected", "offset", offset, "date", date.String(), "generation", gen)

	episodes, err := s.fetch(ctx, date)
	s.commit(gen, date, episodes, err, NoPeriod, "day")
	return nil
}

// Refresh re-fetches the current day offset, recomputing its date so that
// "today" rolls over at local midnight. The selected period survives when it
// is still available. The previous data stays visible while the fetch runs.
func (s *Selector) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.state.Generation++
	gen := s.state.Generation
	offset := s.state.DayOffset
	keep := s.state.SelectedPeriod
	s.mu.Unlock()

	date := domain.DateOf(domain.DayStart(s.location, offset))
	episodes, err := s.fetch(ctx, date)
	s.commit(gen, date, episodes, err, keep, "refresh")
	return err
}

// SelectPeriod selects name if the current day offers it. Unknown names are
// ignored and reported as false.
func (s *Selector) SelectPeriod(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.state.AvailablePeriods, name) {
		s.metrics.InvalidPeriods.Inc()
		s.logger.Debug("ignoring unavailable period", "period", name, "date", s.state.Date.String())
		return false
	}
	if s.state.SelectedPeriod != name {
		s.state.SelectedPeriod = name
		s.metrics.SelectionChanges.WithLabelValues("period").Inc()
		s.updateAffectedLocked()
	}
	return true
}

// State returns a copy of the current selection.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Selector) stateLocked() State {
	st := s.state
	st.AvailablePeriods = slices.Clone(s.state.AvailablePeriods)
	return st
}

func (s *Selector) fetch(ctx context.Context, date domain.Date) ([]domain.Episode, error) {
	start := time.Now()
	episodes, err := s.source.OpenEpisodes(ctx, date)
	s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch episodes for %s: %w", date, err)
	}
	s.metrics.FetchesTotal.WithLabelValues("success").Inc()
	return episodes, nil
}

// commit applies a fetch result if gen is still the latest generation.
func (s *Selector) commit(gen uint64, date domain.Date, episodes []domain.Episode, fetchErr error, keep, kind string) bool {
	normalized := domain.NormalizeEpisodes(episodes)
	periods := domain.PeriodNames(normalized)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		s.metrics.StaleFetches.Inc()
		s.logger.Debug("discarding superseded fetch",
			"date", date.String(),
			"generation", gen,
			"current_generation", s.state.Generation,
		)
		return false
	}

	s.episodes = normalized
	s.state.Date = date
	s.state.AvailablePeriods = periods
	s.state.SelectedPeriod = pickPeriod(periods, keep)
	s.state.Err = ""

	switch {
	case fetchErr != nil:
		s.state.Status = StatusFailed
		s.state.Err = fetchErr.Error()
		s.logger.Warn("episode fetch failed, showing no warnings", "date", date.String(), "error", fetchErr)
	case len(periods) == 0:
		s.state.Status = StatusEmpty
	default:
		s.state.Status = StatusReady
	}

	s.metrics.SelectionChanges.WithLabelValues(kind).Inc()
	s.updateAffectedLocked()

	s.logger.Info("episodes loaded",
		"date", date.String(),
		"episodes", len(normalized),
		"periods", len(periods),
		"selected_period", s.state.SelectedPeriod,
		"status", string(s.state.Status),
	)
	return true
}

func (s *Selector) updateAffectedLocked() {
	if !s.state.HasPeriod() {
		s.metrics.AffectedRegions.Set(0)
		return
	}
	affected := domain.CollectAffectedRegions(s.episodes, s.state.SelectedPeriod)
	s.metrics.AffectedRegions.Set(float64(len(domain.GroupByRegion(affected))))
}

// pickPeriod keeps the previous choice when still offered, else takes the
// first period, else none.
func pickPeriod(periods []string, keep string) string {
	if keep != NoPeriod && slices.Contains(periods, keep) {
		return keep
	}
	if len(periods) > 0 {
		return periods[0]
	}
	return NoPeriod
}
