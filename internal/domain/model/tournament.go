package model

import "slices"

// MatchState tracks whether a match has a winner.
type MatchState string

// Match states.
const (
	MatchPending  MatchState = "pending"
	MatchResolved MatchState = "resolved"
)

// Match is a single pairing inside a bracket round.
type Match struct {
	ID     string     `json:"id"`
	ListID string     `json:"list_id"`
	Round  int        `json:"round"` // 1-based
	ItemA  string     `json:"item_a"`
	ItemB  string     `json:"item_b,omitempty"` // empty for a bye
	Winner string     `json:"winner,omitempty"`
	State  MatchState `json:"state"`
	Bye    bool       `json:"bye,omitempty"`
}

// Has reports whether id takes part in the match.
func (m Match) Has(id string) bool {
	return id != "" && (m.ItemA == id || m.ItemB == id)
}

// Loser returns the eliminated participant of a resolved, non-bye match.
func (m Match) Loser() string {
	if m.State != MatchResolved || m.Bye {
		return ""
	}
	if m.Winner == m.ItemA {
		return m.ItemB
	}
	return m.ItemA
}

// TournamentState is InProgress until the final round resolves.
type TournamentState string

// Tournament states.
const (
	TournamentInProgress TournamentState = "in_progress"
	TournamentComplete   TournamentState = "complete"
)

// Tournament is a single-elimination bracket over a list's items. Rounds is
// indexed by round number minus one; later rounds only reference winners of
// earlier ones.
type Tournament struct {
	ID       string          `json:"id"`
	ListID   string          `json:"list_id"`
	Seeds    []string        `json:"seeds"`
	Rounds   [][]Match       `json:"rounds"`
	Round    int             `json:"round"` // current round, 1-based; 0 when there are no rounds
	State    TournamentState `json:"state"`
	Champion string          `json:"champion,omitempty"`
	Version  int64           `json:"version"`
}

// Clone returns a deep copy of the tournament.
func (t Tournament) Clone() Tournament {
	out := t
	out.Seeds = slices.Clone(t.Seeds)
	if t.Rounds != nil {
		out.Rounds = make([][]Match, len(t.Rounds))
		for i, r := range t.Rounds {
			out.Rounds[i] = slices.Clone(r)
		}
	}
	return out
}

// Current returns the matches of the active round.
func (t Tournament) Current() []Match {
	if t.Round < 1 || t.Round > len(t.Rounds) {
		return nil
	}
	return t.Rounds[t.Round-1]
}

// Pending returns the unresolved matches of the active round.
func (t Tournament) Pending() []Match {
	var out []Match
	for _, m := range t.Current() {
		if m.State == MatchPending {
			out = append(out, m)
		}
	}
	return out
}

// Find locates a match by id across all generated rounds.
func (t Tournament) Find(matchID string) (round, index int, ok bool) {
	for r, matches := range t.Rounds {
		for i, m := range matches {
			if m.ID == matchID {
				return r, i, true
			}
		}
	}
	return 0, 0, false
}
