// Package tournament runs single-elimination brackets over list items.
//
// The scheduler is stateless: every call takes tournament and list snapshots
// by value and returns the next snapshots. Persisting them is the caller's
// job.
package tournament

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/rating"
)

// Scheduler seeds brackets and advances them as results arrive.
type Scheduler struct {
	rater rating.Rater
	now   func() time.Time
	newID func() string
}

// Step is the outcome of one submission.
type Step struct {
	Tournament model.Tournament
	List       model.List
	Match      model.Match
	// History holds one point per participant of the resolved match.
	History []model.HistoryPoint
	// Changed is false when the submission repeated an existing result.
	Changed bool
}

// New creates a Scheduler. Without options it rates with a default Elo rater.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rater: rating.NewElo(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start seeds a bracket from items in the given order. Adjacent seeds meet in
// round one; when the count is not a power of two the trailing seeds get
// byes. A single item yields a complete tournament with no rounds.
func (s *Scheduler) Start(listID string, items []model.Item) (model.Tournament, error) {
	if len(items) == 0 {
		return model.Tournament{}, ErrBracketSize
	}
	if err := model.ValidateItems(items); err != nil {
		return model.Tournament{}, err
	}

	seeds := make([]string, len(items))
	for i, it := range items {
		seeds[i] = it.ID
	}
	t := model.Tournament{
		ID:     s.newID(),
		ListID: listID,
		Seeds:  seeds,
		State:  model.TournamentInProgress,
	}
	if len(seeds) == 1 {
		t.State = model.TournamentComplete
		t.Champion = seeds[0]
		return t, nil
	}

	half := bracketSize(len(seeds)) / 2
	paired := 2 * (len(seeds) - half)
	first := make([]model.Match, 0, half)
	for i := 0; i < paired; i += 2 {
		first = append(first, newMatch(listID, 1, len(first), seeds[i], seeds[i+1]))
	}
	for _, id := range seeds[paired:] {
		m := newMatch(listID, 1, len(first), id, "")
		m.Bye = true
		m.Winner = id
		m.State = model.MatchResolved
		first = append(first, m)
	}
	t.Rounds = [][]model.Match{first}
	t.Round = 1
	return t, nil
}

// Submit records winnerID as the winner of matchID. Repeating the recorded
// result is a no-op with Changed false. On success both participants are
// re-rated, the next round is generated once the current one resolves, and
// ranks are written into the returned list when the final resolves.
func (s *Scheduler) Submit(t model.Tournament, list model.List, matchID, winnerID string) (Step, error) {
	fail := func(err error) (Step, error) {
		return Step{}, &SubmitError{MatchID: matchID, WinnerID: winnerID, Err: err}
	}

	r, i, ok := t.Find(matchID)
	if !ok {
		return fail(ErrUnknownMatch)
	}
	m := t.Rounds[r][i]
	if m.State == model.MatchResolved {
		if m.Winner == winnerID {
			return Step{Tournament: t.Clone(), List: list.Clone(), Match: m}, nil
		}
		if t.State == model.TournamentComplete {
			return fail(fmt.Errorf("%w: %w", ErrComplete, ErrAlreadyResolved))
		}
		return fail(ErrAlreadyResolved)
	}
	if !m.Has(winnerID) {
		return fail(ErrInvalidWinner)
	}

	idx := list.Index()
	ia, okA := idx[m.ItemA]
	ib, okB := idx[m.ItemB]
	if !okA || !okB {
		return fail(ErrMissingItem)
	}

	next := t.Clone()
	out := list.Clone()
	a, b := &out.Items[ia], &out.Items[ib]

	outcome := rating.Loss
	if winnerID == m.ItemA {
		outcome = rating.Win
	}
	a.Score, b.Score = s.rater.Rate(a.Score, b.Score, outcome)
	if outcome == rating.Win {
		a.Wins++
		b.Losses++
	} else {
		b.Wins++
		a.Losses++
	}

	m.Winner = winnerID
	m.State = model.MatchResolved
	next.Rounds[r][i] = m
	advance(&next)
	next.Version++

	if next.State == model.TournamentComplete {
		out = ApplyRanks(out, next)
	}

	ts := s.now().UTC()
	return Step{
		Tournament: next,
		List:       out,
		Match:      m,
		History: []model.HistoryPoint{
			{ListID: out.ID, ItemID: a.ID, Timestamp: ts, Score: a.Score},
			{ListID: out.ID, ItemID: b.ID, Timestamp: ts, Score: b.Score},
		},
		Changed: true,
	}, nil
}

// advance generates the next round, or completes the tournament, once every
// match of the current round is resolved.
func advance(t *model.Tournament) {
	cur := t.Current()
	winners := make([]string, 0, len(cur))
	for _, m := range cur {
		if m.State != model.MatchResolved {
			return
		}
		winners = append(winners, m.Winner)
	}
	if len(winners) == 1 {
		t.State = model.TournamentComplete
		t.Champion = winners[0]
		return
	}

	round := t.Round + 1
	matches := make([]model.Match, 0, len(winners)/2)
	for i := 0; i+1 < len(winners); i += 2 {
		matches = append(matches, newMatch(t.ListID, round, len(matches), winners[i], winners[i+1]))
	}
	t.Rounds = append(t.Rounds, matches)
	t.Round = round
}

func newMatch(listID string, round, index int, a, b string) model.Match {
	return model.Match{
		ID:     matchID(round, index),
		ListID: listID,
		Round:  round,
		ItemA:  a,
		ItemB:  b,
		State:  model.MatchPending,
	}
}

// matchID is "<round>-<position>", both 1-based.
func matchID(round, index int) string {
	return strconv.Itoa(round) + "-" + strconv.Itoa(index+1)
}

// bracketSize returns the smallest power of two >= n.
func bracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
