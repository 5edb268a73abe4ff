// Package source merges entries pulled from an external catalogue into a
// list.
package source

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/okian/zeroflops/internal/domain/dedupe"
	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/pkg/metrics"
)

// DefaultInitialScore is the rating given to newly imported items.
const DefaultInitialScore = 1500

// ErrInvalidEntry is returned for an entry without an external id.
var ErrInvalidEntry = errors.New("invalid entry")

// Entry is one record from an external source. ExternalID becomes the item id.
type Entry struct {
	ExternalID string                 `json:"external_id"`
	Name       string                 `json:"name"`
	Attributes map[string]model.Value `json:"attributes,omitempty"`
}

// Result counts what a merge did.
type Result struct {
	Added      int `json:"added"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
}

// Importer merges entries into lists.
type Importer struct {
	initialScore float64
	dedupeSize   int
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	im := &Importer{
		initialScore: DefaultInitialScore,
		dedupeSize:   dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Merge returns a copy of list with entries folded in. Entries repeating an
// external id within one call are skipped. Known items get their name and
// attributes refreshed while score, rank and match counters are kept; unknown
// ids are appended with the initial score. The input list is not modified.
func (im *Importer) Merge(ctx context.Context, list model.List, entries []Entry) (model.List, Result, error) {
	out := list.Clone()
	index := out.Index()
	seen := dedupe.New(dedupe.WithMaxSize(im.dedupeSize))

	var res Result
	for i, e := range entries {
		if e.ExternalID == "" {
			return model.List{}, Result{}, fmt.Errorf("%w: entry %d has no external id", ErrInvalidEntry, i)
		}
		if seen.SeenAndRecord(ctx, e.ExternalID) {
			res.Duplicates++
			continue
		}

		if pos, ok := index[e.ExternalID]; ok {
			it := &out.Items[pos]
			it.Name = e.Name
			it.Attributes = maps.Clone(e.Attributes)
			res.Updated++
			continue
		}

		index[e.ExternalID] = len(out.Items)
		out.Items = append(out.Items, model.Item{
			ID:         e.ExternalID,
			Name:       e.Name,
			Attributes: maps.Clone(e.Attributes),
			Score:      im.initialScore,
		})
		res.Added++
	}

	if err := out.Validate(); err != nil {
		return model.List{}, Result{}, err
	}
	metrics.RecordItemsImported(res.Added, res.Duplicates)
	return out, res, nil
}
