package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/pkg/metrics"
)

// MemoryStore is an in-memory Store. Snapshots are deep-copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	lists       map[string]model.List
	tournaments map[string]model.Tournament // keyed by list id
	history     map[historyKey][]model.HistoryPoint
	historySize int
	closed      bool

	updater
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store and starts its
// background metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{
		lists:       make(map[string]model.List),
		tournaments: make(map[string]model.Tournament),
		history:     make(map[historyKey][]model.HistoryPoint),
	}
	s.start(ctx, o.metricsUpdateInterval, s.updateMetrics)
	return s
}

// GetList implements Store.
func (s *MemoryStore) GetList(_ context.Context, id string) (model.List, error) {
	defer observe("get_list", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.List{}, ErrClosed
	}

	l, ok := s.lists[id]
	if !ok {
		return model.List{}, fmt.Errorf("list %q: %w", id, ErrNotFound)
	}
	return l.Clone(), nil
}

// SaveList implements Store.
func (s *MemoryStore) SaveList(_ context.Context, list model.List, expectedVersion int64) (int64, error) {
	defer observe("save_list", time.Now())
	if err := list.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	cur, ok := s.lists[list.ID]
	if err := checkVersion(ok, cur.Version, expectedVersion); err != nil {
		return 0, fmt.Errorf("list %q at version %d: %w", list.ID, expectedVersion, err)
	}
	next := list.Clone()
	next.Version = expectedVersion + 1
	s.lists[list.ID] = next
	return next.Version, nil
}

// GetTournament implements Store.
func (s *MemoryStore) GetTournament(_ context.Context, listID string) (model.Tournament, error) {
	defer observe("get_tournament", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Tournament{}, ErrClosed
	}

	t, ok := s.tournaments[listID]
	if !ok {
		return model.Tournament{}, fmt.Errorf("tournament for list %q: %w", listID, ErrNotFound)
	}
	return t.Clone(), nil
}

// SaveTournament implements Store.
func (s *MemoryStore) SaveTournament(_ context.Context, t model.Tournament, expectedVersion int64) (int64, error) {
	defer observe("save_tournament", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	cur, ok := s.tournaments[t.ListID]
	if err := checkVersion(ok, cur.Version, expectedVersion); err != nil {
		return 0, fmt.Errorf("tournament for list %q at version %d: %w", t.ListID, expectedVersion, err)
	}
	next := t.Clone()
	next.Version = expectedVersion + 1
	s.tournaments[t.ListID] = next
	return next.Version, nil
}

// Commit implements Store.
func (s *MemoryStore) Commit(_ context.Context, w Write) (Versions, error) {
	defer observe("commit", time.Now())
	if err := w.validate(); err != nil {
		return Versions{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Versions{}, ErrClosed
	}

	cur, ok := s.lists[w.List.ID]
	if err := checkVersion(ok, cur.Version, w.ListVersion); err != nil {
		return Versions{}, fmt.Errorf("list %q at version %d: %w", w.List.ID, w.ListVersion, err)
	}
	curT, ok := s.tournaments[w.Tournament.ListID]
	if err := checkVersion(ok, curT.Version, w.TournamentVersion); err != nil {
		return Versions{}, fmt.Errorf("tournament for list %q at version %d: %w", w.Tournament.ListID, w.TournamentVersion, err)
	}

	l := w.List.Clone()
	l.Version = w.ListVersion + 1
	s.lists[l.ID] = l
	t := w.Tournament.Clone()
	t.Version = w.TournamentVersion + 1
	s.tournaments[t.ListID] = t
	s.appendHistory(w.History)
	return Versions{List: l.Version, Tournament: t.Version}, nil
}

// AppendHistory implements Store.
func (s *MemoryStore) AppendHistory(_ context.Context, points ...model.HistoryPoint) error {
	defer observe("append_history", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.appendHistory(points)
	return nil
}

// appendHistory requires s.mu held for writing.
func (s *MemoryStore) appendHistory(points []model.HistoryPoint) {
	for _, p := range points {
		p.Timestamp = p.Timestamp.UTC()
		k := historyKey{list: p.ListID, item: p.ItemID}
		s.history[k] = append(s.history[k], p)
	}
	s.historySize += len(points)
}

// History implements Store.
func (s *MemoryStore) History(_ context.Context, listID, itemID string) ([]model.HistoryPoint, error) {
	defer observe("history", time.Now())
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	out := slices.Clone(s.history[historyKey{list: listID, item: itemID}])
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.HistoryPoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

// Close stops the background metrics updater. Later calls fail with
// ErrClosed.
func (s *MemoryStore) Close() error {
	s.stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	lists, tournaments, history := len(s.lists), len(s.tournaments), s.historySize
	s.mu.RUnlock()

	metrics.UpdateStoreRecords(kindLists, lists)
	metrics.UpdateStoreRecords(kindTournaments, tournaments)
	metrics.UpdateStoreRecords(kindHistory, history)
}

type historyKey struct {
	list, item string
}

// updater runs a periodic callback until stopped or its context ends.
type updater struct {
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func (u *updater) start(ctx context.Context, interval time.Duration, fn func()) {
	u.stopChan = make(chan struct{})
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-u.stopChan:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (u *updater) stop() {
	u.stopOnce.Do(func() { close(u.stopChan) })
	u.wg.Wait()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
