package model

import "time"

// HistoryPoint is a score snapshot of one item of one list at one instant.
type HistoryPoint struct {
	ListID    string    `json:"list_id"`
	ItemID    string    `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}
