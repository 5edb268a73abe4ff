// Package history accumulates score snapshots and turns them into smoothed
// series for charting.
package history

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/types"
)

// Recorder collects the history points of one list per item. It is not safe
// for concurrent use.
type Recorder struct {
	points map[string][]model.HistoryPoint
}

// NewRecorder creates an empty Recorder, optionally seeded with points.
func NewRecorder(points ...model.HistoryPoint) *Recorder {
	r := &Recorder{points: make(map[string][]model.HistoryPoint)}
	r.Append(points...)
	return r
}

// Record appends one snapshot. Points may arrive out of order.
func (r *Recorder) Record(itemID string, score float64, ts time.Time) {
	r.points[itemID] = append(r.points[itemID], model.HistoryPoint{ItemID: itemID, Timestamp: ts.UTC(), Score: score})
}

// Append records existing points.
func (r *Recorder) Append(points ...model.HistoryPoint) {
	for _, p := range points {
		p.Timestamp = p.Timestamp.UTC()
		r.points[p.ItemID] = append(r.points[p.ItemID], p)
	}
}

// Items lists every item with at least one point, in lexical order.
func (r *Recorder) Items() []string {
	return slices.Sorted(maps.Keys(r.points))
}

// Points returns the item's points in chronological order.
func (r *Recorder) Points(itemID string) []model.HistoryPoint {
	out := slices.Clone(r.points[itemID])
	sortPoints(out)
	return out
}

// Latest returns the most recent point of an item.
func (r *Recorder) Latest(itemID string) (model.HistoryPoint, bool) {
	pts := r.Points(itemID)
	if len(pts) == 0 {
		return model.HistoryPoint{}, false
	}
	return pts[len(pts)-1], true
}

// Series smooths the recorded points of one item. See Series.
func (r *Recorder) Series(itemID string, halfLife time.Duration) []types.SeriesPoint {
	return Series(r.points[itemID], itemID, halfLife)
}

// Series builds a time-weighted series for itemID from points belonging to
// any items. Points sharing a timestamp are averaged into one sample. Each
// later sample s moves the running value v by alpha*(s-v) where
// alpha = 1 - 2^(-dt/halfLife) and dt is the gap to the previous sample; the
// first sample seeds v. A non-positive halfLife returns the averaged samples
// unsmoothed. The result does not depend on input order.
func Series(points []model.HistoryPoint, itemID string, halfLife time.Duration) []types.SeriesPoint {
	var own []model.HistoryPoint
	for _, p := range points {
		if p.ItemID == itemID {
			own = append(own, p)
		}
	}
	if len(own) == 0 {
		return nil
	}
	sortPoints(own)

	samples := make([]types.SeriesPoint, 0, len(own))
	for i := 0; i < len(own); {
		j, sum := i, 0.0
		for j < len(own) && own[j].Timestamp.Equal(own[i].Timestamp) {
			sum += own[j].Score
			j++
		}
		samples = append(samples, types.SeriesPoint{Timestamp: own[i].Timestamp, Score: sum / float64(j-i)})
		i = j
	}
	if halfLife <= 0 {
		return samples
	}

	v := samples[0].Score
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp)
		alpha := 1 - math.Exp2(-float64(dt)/float64(halfLife))
		v += alpha * (samples[i].Score - v)
		samples[i].Score = v
	}
	return samples
}

// sortPoints orders by time, then score so equal instants sum identically
// whatever the arrival order.
func sortPoints(points []model.HistoryPoint) {
	slices.SortFunc(points, func(a, b model.HistoryPoint) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Score, b.Score)
	})
}
