// Package repository persists list, tournament and history snapshots.
//
// Writes are optimistic: callers pass the version they loaded and the store
// rejects the write with ErrVersionConflict when someone else saved first.
// Version 0 means "create"; every successful save returns the stored
// version, which is always expectedVersion+1.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/zeroflops/internal/domain/model"
)

// Store provides versioned access to list state.
type Store interface {
	// GetList returns the stored list. Returns ErrNotFound if unknown.
	GetList(ctx context.Context, id string) (model.List, error)
	// SaveList stores list if the current version equals expectedVersion.
	SaveList(ctx context.Context, list model.List, expectedVersion int64) (int64, error)

	// GetTournament returns the current tournament of a list. Returns
	// ErrNotFound if the list never started one.
	GetTournament(ctx context.Context, listID string) (model.Tournament, error)
	// SaveTournament stores t as its list's current tournament, replacing
	// any earlier one, if the current version equals expectedVersion.
	SaveTournament(ctx context.Context, t model.Tournament, expectedVersion int64) (int64, error)

	// Commit applies w as one unit: both versions are checked first and
	// nothing is written unless both match.
	Commit(ctx context.Context, w Write) (Versions, error)

	// AppendHistory records score snapshots.
	AppendHistory(ctx context.Context, points ...model.HistoryPoint) error
	// History returns the points of an item of a list in chronological
	// order.
	History(ctx context.Context, listID, itemID string) ([]model.HistoryPoint, error)

	// Close releases background resources.
	Close() error
}

// Write is a list and its tournament saved together with the history points
// the change produced.
type Write struct {
	List              model.List
	ListVersion       int64
	Tournament        model.Tournament
	TournamentVersion int64
	History           []model.HistoryPoint
}

// Versions are the stored versions after a Commit.
type Versions struct {
	List       int64
	Tournament int64
}

func (w Write) validate() error {
	if err := w.List.Validate(); err != nil {
		return err
	}
	if w.Tournament.ListID != w.List.ID {
		return fmt.Errorf("%w: tournament of list %q written with list %q", ErrInvalidWrite, w.Tournament.ListID, w.List.ID)
	}
	for _, p := range w.History {
		if p.ListID != w.List.ID {
			return fmt.Errorf("%w: history of list %q written with list %q", ErrInvalidWrite, p.ListID, w.List.ID)
		}
	}
	return nil
}

// Record kinds reported to metrics.
const (
	kindLists       = "lists"
	kindTournaments = "tournaments"
	kindHistory     = "history"
)

// checkVersion applies the optimistic write rule given whether a record
// exists and its current version.
func checkVersion(exists bool, current, expected int64) error {
	switch {
	case !exists && expected != 0:
		return ErrNotFound
	case exists && current != expected:
		return ErrVersionConflict
	}
	return nil
}
