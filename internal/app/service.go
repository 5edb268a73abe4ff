// Package service orchestrates the ranking engine over a list store: it loads
// snapshots, runs the pure domain operations and saves the results, retrying
// when a concurrent writer got there first.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/zeroflops/internal/adapters/repository"
	"github.com/okian/zeroflops/internal/adapters/source"
	"github.com/okian/zeroflops/internal/config"
	"github.com/okian/zeroflops/internal/domain/history"
	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/query"
	"github.com/okian/zeroflops/internal/domain/rating"
	"github.com/okian/zeroflops/internal/domain/tournament"
	"github.com/okian/zeroflops/internal/domain/types"
	"github.com/okian/zeroflops/pkg/logger"
	"github.com/okian/zeroflops/pkg/metrics"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxSaveRetries  = 3
	DefaultHistoryHalfLife = 24 * time.Hour
	DefaultMaxConcurrency  = 8
)

// Service implements the operations exposed by the HTTP API.
type Service struct {
	store     repository.Store
	scheduler *tournament.Scheduler
	importer  *source.Importer

	maxRetries     int
	halfLife       time.Duration
	maxConcurrency int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScheduler replaces the default tournament scheduler.
func WithScheduler(s *tournament.Scheduler) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scheduler = s
		}
	}
}

// WithImporter replaces the default import merger.
func WithImporter(im *source.Importer) Option {
	return func(svc *Service) {
		if im != nil {
			svc.importer = im
		}
	}
}

// WithMaxSaveRetries bounds retries after a version conflict.
func WithMaxSaveRetries(n int) Option {
	return func(svc *Service) {
		if n >= 0 {
			svc.maxRetries = n
		}
	}
}

// WithHistoryHalfLife sets the default smoothing for score series. Zero
// returns raw samples.
func WithHistoryHalfLife(d time.Duration) Option {
	return func(svc *Service) {
		if d >= 0 {
			svc.halfLife = d
		}
	}
}

// WithMaxConcurrency caps parallel list evaluations.
func WithMaxConcurrency(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxConcurrency = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// OptionsFromConfig translates process configuration into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	rater := rating.NewElo(rating.WithK(cfg.RatingK), rating.WithFloor(cfg.RatingFloor))
	return []Option{
		WithScheduler(tournament.New(tournament.WithRater(rater))),
		WithImporter(source.New(
			source.WithInitialScore(cfg.InitialScore),
			source.WithDedupeSize(cfg.DedupeSize),
		)),
		WithMaxSaveRetries(cfg.MaxSaveRetries),
		WithHistoryHalfLife(cfg.HistoryHalfLife),
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		scheduler:      tournament.New(),
		importer:       source.New(),
		maxRetries:     DefaultMaxSaveRetries,
		halfLife:       DefaultHistoryHalfLife,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// CreateList stores a new list and returns it at its first version.
func (s *Service) CreateList(ctx context.Context, list model.List) (model.List, error) {
	if list.Mode == "" {
		list.Mode = model.ModeSort
	}
	if list.Query != "" {
		q, err := query.Parse(list.Query, query.SchemaOf(list.Items))
		if err != nil {
			recordQueryError(err)
			return model.List{}, err
		}
		list.Query = q.String()
	}
	v, err := s.store.SaveList(ctx, list, 0)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordVersionConflict()
		}
		return model.List{}, err
	}
	list.Version = v
	s.logger.Info(ctx, "list created",
		logger.String("list", list.ID),
		logger.Int("items", len(list.Items)),
	)
	return list, nil
}

// GetList returns the stored list.
func (s *Service) GetList(ctx context.Context, listID string) (model.List, error) {
	return s.store.GetList(ctx, listID)
}

// Evaluate runs text against the list's items. Empty text falls back to the
// list's stored query.
func (s *Service) Evaluate(ctx context.Context, listID, text string) ([]model.Item, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(list, text)
}

func (s *Service) evaluate(list model.List, text string) ([]model.Item, error) {
	if text == "" {
		text = list.Query
	}
	start := time.Now()
	items, err := query.Run(text, list.Items)
	if err != nil {
		recordQueryError(err)
		return nil, err
	}
	metrics.RecordQueryEvaluated(float64(time.Since(start).Microseconds()) / 1000)
	return items, nil
}

// EvaluateLists runs the same query text against several lists concurrently.
// The first failure cancels the rest.
func (s *Service) EvaluateLists(ctx context.Context, listIDs []string, text string) (map[string][]model.Item, error) {
	out := make(map[string][]model.Item, len(listIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for _, id := range listIDs {
		g.Go(func() error {
			items, err := s.Evaluate(gctx, id, text)
			if err != nil {
				return fmt.Errorf("list %q: %w", id, err)
			}
			mu.Lock()
			out[id] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Import merges external entries into a stored list.
func (s *Service) Import(ctx context.Context, listID string, entries []source.Entry) (model.List, source.Result, error) {
	var (
		saved model.List
		res   source.Result
	)
	err := s.retry(ctx, "import", func() error {
		list, err := s.store.GetList(ctx, listID)
		if err != nil {
			return err
		}
		merged, r, err := s.importer.Merge(ctx, list, entries)
		if err != nil {
			return err
		}
		v, err := s.store.SaveList(ctx, merged, list.Version)
		if err != nil {
			return err
		}
		merged.Version = v
		saved, res = merged, r
		return nil
	})
	if err != nil {
		return model.List{}, source.Result{}, err
	}
	s.logger.Info(ctx, "entries imported",
		logger.String("list", listID),
		logger.Int("added", res.Added),
		logger.Int("updated", res.Updated),
		logger.Int("duplicates", res.Duplicates),
	)
	return saved, res, nil
}

// StartTournament seeds a bracket from the list's stored query result,
// replacing any previous tournament of the list. Without a stored query the
// visible items are seeded in list order. Ranks left by an earlier
// tournament are cleared in the same write.
func (s *Service) StartTournament(ctx context.Context, listID string) (model.Tournament, error) {
	var started model.Tournament
	err := s.retry(ctx, "start tournament", func() error {
		list, err := s.store.GetList(ctx, listID)
		if err != nil {
			return err
		}
		items, err := s.evaluate(list, "")
		if err != nil {
			return err
		}
		if list.Query == "" {
			items = slices.DeleteFunc(items, func(it model.Item) bool { return it.Hidden })
		}
		t, err := s.scheduler.Start(list.ID, items)
		if err != nil {
			return err
		}

		var expected int64
		prev, err := s.store.GetTournament(ctx, listID)
		switch {
		case err == nil:
			expected = prev.Version
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		next := clearRanks(list)
		if t.State == model.TournamentComplete {
			next = tournament.ApplyRanks(next, t)
		}
		v, err := s.store.Commit(ctx, repository.Write{
			List:              next,
			ListVersion:       list.Version,
			Tournament:        t,
			TournamentVersion: expected,
		})
		if err != nil {
			return err
		}
		t.Version = v.Tournament
		started = t
		return nil
	})
	if err != nil {
		return model.Tournament{}, err
	}

	metrics.RecordTournamentStarted()
	if started.State == model.TournamentComplete {
		metrics.RecordTournamentCompleted()
	}
	s.logger.Info(ctx, "tournament started",
		logger.String("list", listID),
		logger.String("tournament", started.ID),
		logger.Int("seeds", len(started.Seeds)),
	)
	return started, nil
}

// Tournament returns the list's current tournament.
func (s *Service) Tournament(ctx context.Context, listID string) (model.Tournament, error) {
	return s.store.GetTournament(ctx, listID)
}

// Standings returns the final ordering of the list's tournament, or nil while
// it is still running.
func (s *Service) Standings(ctx context.Context, listID string) ([]types.Standing, error) {
	t, err := s.store.GetTournament(ctx, listID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return tournament.Standings(t, list.Items), nil
}

// SubmitResult records winnerID as the winner of matchID in the list's
// tournament. The rated list, the advanced tournament and the new history
// points are committed together; after a version conflict the submission is
// replayed against fresh snapshots.
func (s *Service) SubmitResult(ctx context.Context, listID, matchID, winnerID string) (tournament.Step, error) {
	var step tournament.Step
	err := s.retry(ctx, "submit result", func() error {
		t, err := s.store.GetTournament(ctx, listID)
		if err != nil {
			return err
		}
		list, err := s.store.GetList(ctx, listID)
		if err != nil {
			return err
		}
		st, err := s.scheduler.Submit(t, list, matchID, winnerID)
		if err != nil {
			return err
		}
		if st.Changed {
			v, err := s.store.Commit(ctx, repository.Write{
				List:              st.List,
				ListVersion:       list.Version,
				Tournament:        st.Tournament,
				TournamentVersion: t.Version,
				History:           st.History,
			})
			if err != nil {
				return err
			}
			st.List.Version, st.Tournament.Version = v.List, v.Tournament
		}
		step = st
		return nil
	})
	if err != nil {
		if !recordRejection(err) && !errors.Is(err, repository.ErrNotFound) {
			metrics.RecordErrorByComponent("service", "submit_result")
			s.logger.Error(ctx, "failed to save match result",
				logger.String("list", listID),
				logger.String("match", matchID),
				logger.Error(err),
			)
		}
		return tournament.Step{}, err
	}
	if !step.Changed {
		metrics.RecordMatchDuplicate()
		s.logger.Debug(ctx, "repeated match result ignored",
			logger.String("list", listID),
			logger.String("match", matchID),
		)
		return step, nil
	}

	metrics.RecordMatchResolved()
	if step.Tournament.State == model.TournamentComplete {
		metrics.RecordTournamentCompleted()
		s.logger.Info(ctx, "tournament complete",
			logger.String("list", listID),
			logger.String("champion", step.Tournament.Champion),
		)
	}
	return step, nil
}

func clearRanks(list model.List) model.List {
	out := list.Clone()
	for i := range out.Items {
		out.Items[i].Rank = nil
	}
	return out
}

// Series returns the smoothed score history of an item of a list using the
// default half-life.
func (s *Service) Series(ctx context.Context, listID, itemID string) ([]types.SeriesPoint, error) {
	return s.SeriesWithHalfLife(ctx, listID, itemID, s.halfLife)
}

// SeriesWithHalfLife returns the score history of an item of a list smoothed
// with the given half-life. Zero or negative returns raw samples. An unknown
// list is ErrNotFound; an item without history has an empty series.
func (s *Service) SeriesWithHalfLife(ctx context.Context, listID, itemID string, halfLife time.Duration) ([]types.SeriesPoint, error) {
	if _, err := s.store.GetList(ctx, listID); err != nil {
		return nil, err
	}
	points, err := s.store.History(ctx, listID, itemID)
	if err != nil {
		return nil, err
	}
	return history.Series(points, itemID, halfLife), nil
}

// retry runs fn until it stops failing with a version conflict or the retry
// budget is spent.
func (s *Service) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		metrics.RecordVersionConflict()
		if attempt >= s.maxRetries {
			return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, attempt+1, err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		metrics.RecordSaveRetry()
		s.logger.Debug(ctx, "retrying after version conflict",
			logger.String("operation", op),
			logger.Int("attempt", attempt+1),
		)
	}
}

func recordQueryError(err error) {
	switch {
	case errors.Is(err, query.ErrParse):
		metrics.RecordQueryError("parse")
	case errors.Is(err, query.ErrUnknownField):
		metrics.RecordQueryError("unknown_field")
	case errors.Is(err, query.ErrTypeMismatch):
		metrics.RecordQueryError("type_mismatch")
	}
}

// recordRejection reports whether err is a rejected submission.
func recordRejection(err error) bool {
	switch {
	case errors.Is(err, tournament.ErrUnknownMatch):
		metrics.RecordMatchRejected("unknown_match")
	case errors.Is(err, tournament.ErrComplete):
		metrics.RecordMatchRejected("complete")
	case errors.Is(err, tournament.ErrAlreadyResolved):
		metrics.RecordMatchRejected("already_resolved")
	case errors.Is(err, tournament.ErrInvalidWinner):
		metrics.RecordMatchRejected("invalid_winner")
	case errors.Is(err, tournament.ErrMissingItem):
		metrics.RecordMatchRejected("missing_item")
	default:
		return false
	}
	return true
}
