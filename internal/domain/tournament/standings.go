package tournament

import (
	"cmp"
	"slices"

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/types"
)

// Standings returns the final ordering of a complete tournament, or nil while
// it is in progress. An item's rank is one plus the number of items that
// survived longer; items knocked out in the same round share a rank and are
// listed by seed. Scores are filled from items when present.
func Standings(t model.Tournament, items []model.Item) []types.Standing {
	if t.State != model.TournamentComplete {
		return nil
	}

	// eliminated maps a seed to the round it lost in; the champion never lost.
	eliminated := make(map[string]int, len(t.Seeds))
	for _, round := range t.Rounds {
		for _, m := range round {
			if loser := m.Loser(); loser != "" {
				eliminated[loser] = m.Round
			}
		}
	}
	depth := func(id string) int {
		if id == t.Champion {
			return len(t.Rounds) + 1
		}
		return eliminated[id]
	}

	scores := make(map[string]float64, len(items))
	for _, it := range items {
		scores[it.ID] = it.Score
	}

	out := make([]types.Standing, len(t.Seeds))
	for i, id := range t.Seeds {
		out[i] = types.Standing{
			ItemID:       id,
			Seed:         i + 1,
			Score:        scores[id],
			EliminatedIn: eliminated[id],
		}
	}
	slices.SortStableFunc(out, func(a, b types.Standing) int {
		if c := cmp.Compare(depth(b.ItemID), depth(a.ItemID)); c != 0 {
			return c
		}
		return cmp.Compare(a.Seed, b.Seed)
	})
	for i := range out {
		if i > 0 && depth(out[i].ItemID) == depth(out[i-1].ItemID) {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// ApplyRanks returns a copy of list with the tournament's final ranks set on
// every seeded item. Items outside the bracket are left as they were.
func ApplyRanks(list model.List, t model.Tournament) model.List {
	out := list.Clone()
	standings := Standings(t, out.Items)
	if standings == nil {
		return out
	}
	idx := out.Index()
	for _, st := range standings {
		if i, ok := idx[st.ItemID]; ok {
			out.Items[i].SetRank(st.Rank)
		}
	}
	return out
}
