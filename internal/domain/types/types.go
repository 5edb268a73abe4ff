// Package types contains read shapes returned to callers of the service.
package types

import "time"

// Standing is one row of a completed tournament's final ordering.
type Standing struct {
	Rank   int     `json:"rank"`
	ItemID string  `json:"item_id"`
	Seed   int     `json:"seed"` // 1-based position in the seeded order
	Score  float64 `json:"score"`
	// EliminatedIn is the round the item lost in; 0 for the champion.
	EliminatedIn int `json:"eliminated_in"`
}

// SeriesPoint is a single time-weighted sample for charting.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}
