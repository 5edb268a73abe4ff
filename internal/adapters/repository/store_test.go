package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/zeroflops/internal/adapters/repository"
	"github.com/okian/zeroflops/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type storeFactory struct {
	name string
	open func(t *testing.T) repository.Store
}

func factories() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) repository.Store {
			return repository.NewMemoryStore(context.Background(), repository.WithMetricsUpdateInterval(10*time.Millisecond))
		}},
		{"sqlite", func(t *testing.T) repository.Store {
			path := filepath.Join(t.TempDir(), "lists.db")
			s, err := repository.OpenSQLite(context.Background(), path,
				repository.WithMetricsUpdateInterval(10*time.Millisecond),
				repository.WithBusyTimeout(time.Second))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
}

func sampleList() model.List {
	rank := 2
	return model.List{
		ID:    "l-1",
		Owner: "u-1",
		Name:  "Albums",
		Mode:  model.ModeTournament,
		Query: "year > 1990",
		Items: []model.Item{
			{
				ID:    "a",
				Name:  "Kid A",
				Score: 1516,
				Rank:  &rank,
				Wins:  1,
				Attributes: map[string]model.Value{
					"year":     model.Number(2000),
					"released": model.Date(time.Date(2000, 10, 2, 0, 0, 0, 0, time.UTC)),
					"label":    model.Text("Parlophone"),
					"explicit": model.Bool(false),
				},
			},
			{ID: "b", Name: "Amnesiac", Score: 1484, Losses: 1, Hidden: true},
		},
	}
}

func TestStores(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer func() { So(s.Close(), ShouldBeNil) }()

			Convey("When a list is unknown", func() {
				_, err := s.GetList(ctx, "missing")

				Convey("Then ErrNotFound is returned", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When a list is created and read back", func() {
				v, err := s.SaveList(ctx, sampleList(), 0)
				So(err, ShouldBeNil)
				got, err := s.GetList(ctx, "l-1")
				So(err, ShouldBeNil)

				Convey("Then the snapshot survives intact at version 1", func() {
					So(v, ShouldEqual, 1)
					want := sampleList()
					want.Version = 1
					So(got, ShouldResemble, want)
				})

				Convey("Then a save from the loaded version succeeds", func() {
					got.Items[0].Score = 1532
					v2, err := s.SaveList(ctx, got, got.Version)
					So(err, ShouldBeNil)
					So(v2, ShouldEqual, 2)

					again, err := s.GetList(ctx, "l-1")
					So(err, ShouldBeNil)
					So(again.Items[0].Score, ShouldEqual, 1532)
					So(again.Version, ShouldEqual, 2)
				})

				Convey("Then a stale save is rejected", func() {
					_, err := s.SaveList(ctx, got, got.Version)
					So(err, ShouldBeNil)
					_, err = s.SaveList(ctx, got, got.Version)
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)
				})

				Convey("Then creating it again conflicts", func() {
					_, err := s.SaveList(ctx, sampleList(), 0)
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)
				})

				Convey("Then mutating the returned copy does not leak", func() {
					got.Items[0].Attributes["year"] = model.Number(1)
					fresh, err := s.GetList(ctx, "l-1")
					So(err, ShouldBeNil)
					So(fresh.Items[0].Attributes["year"], ShouldResemble, model.Number(2000))
				})
			})

			Convey("When updating a list that was never created", func() {
				_, err := s.SaveList(ctx, sampleList(), 3)

				Convey("Then ErrNotFound is returned", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When a list repeats an item id", func() {
				l := sampleList()
				l.Items = append(l.Items, model.Item{ID: "a"})
				_, err := s.SaveList(ctx, l, 0)

				Convey("Then it is rejected", func() {
					So(errors.Is(err, model.ErrDuplicateItem), ShouldBeTrue)
				})
			})

			Convey("When two writers race from the same version", func() {
				_, err := s.SaveList(ctx, sampleList(), 0)
				So(err, ShouldBeNil)

				var (
					wg        sync.WaitGroup
					mu        sync.Mutex
					ok        int
					conflicts int
				)
				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						l := sampleList()
						_, err := s.SaveList(ctx, l, 1)
						mu.Lock()
						defer mu.Unlock()
						switch {
						case err == nil:
							ok++
						case errors.Is(err, repository.ErrVersionConflict):
							conflicts++
						}
					}()
				}
				wg.Wait()

				Convey("Then exactly one wins", func() {
					So(ok, ShouldEqual, 1)
					So(conflicts, ShouldEqual, 7)
				})
			})

			Convey("When tournaments are saved", func() {
				tr := model.Tournament{
					ID:     "t-1",
					ListID: "l-1",
					Seeds:  []string{"a", "b"},
					Rounds: [][]model.Match{{{ID: "1-1", ListID: "l-1", Round: 1, ItemA: "a", ItemB: "b", State: model.MatchPending}}},
					Round:  1,
					State:  model.TournamentInProgress,
				}
				_, err := s.GetTournament(ctx, "l-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				v, err := s.SaveTournament(ctx, tr, 0)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1)

				Convey("Then they read back by list id", func() {
					got, err := s.GetTournament(ctx, "l-1")
					So(err, ShouldBeNil)
					tr.Version = 1
					So(got, ShouldResemble, tr)
				})

				Convey("Then a replacement needs the current version", func() {
					next := tr
					next.ID = "t-2"
					_, err := s.SaveTournament(ctx, next, 0)
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)

					v, err := s.SaveTournament(ctx, next, 1)
					So(err, ShouldBeNil)
					So(v, ShouldEqual, 2)
					got, err := s.GetTournament(ctx, "l-1")
					So(err, ShouldBeNil)
					So(got.ID, ShouldEqual, "t-2")
				})
			})

			Convey("When history is appended out of order", func() {
				t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
				So(s.AppendHistory(ctx,
					model.HistoryPoint{ListID: "l-1", ItemID: "a", Timestamp: t0.Add(time.Hour), Score: 1516},
					model.HistoryPoint{ListID: "l-1", ItemID: "b", Timestamp: t0, Score: 1484},
				), ShouldBeNil)
				So(s.AppendHistory(ctx, model.HistoryPoint{ListID: "l-1", ItemID: "a", Timestamp: t0, Score: 1500}), ShouldBeNil)
				So(s.AppendHistory(ctx), ShouldBeNil)

				Convey("Then it reads back per item in time order", func() {
					pts, err := s.History(ctx, "l-1", "a")
					So(err, ShouldBeNil)
					So(pts, ShouldResemble, []model.HistoryPoint{
						{ListID: "l-1", ItemID: "a", Timestamp: t0, Score: 1500},
						{ListID: "l-1", ItemID: "a", Timestamp: t0.Add(time.Hour), Score: 1516},
					})

					none, err := s.History(ctx, "l-1", "zzz")
					So(err, ShouldBeNil)
					So(none, ShouldBeEmpty)
				})

				Convey("Then another list with the same item id keeps its own series", func() {
					So(s.AppendHistory(ctx, model.HistoryPoint{ListID: "l-2", ItemID: "a", Timestamp: t0, Score: 900}), ShouldBeNil)

					other, err := s.History(ctx, "l-2", "a")
					So(err, ShouldBeNil)
					So(other, ShouldResemble, []model.HistoryPoint{
						{ListID: "l-2", ItemID: "a", Timestamp: t0, Score: 900},
					})
					mine, err := s.History(ctx, "l-1", "a")
					So(err, ShouldBeNil)
					So(mine, ShouldHaveLength, 2)
				})
			})

			Convey("When a list and its tournament are committed together", func() {
				t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
				w := repository.Write{
					List:       sampleList(),
					Tournament: model.Tournament{ID: "t-1", ListID: "l-1", Seeds: []string{"a", "b"}, Round: 1},
					History: []model.HistoryPoint{
						{ListID: "l-1", ItemID: "a", Timestamp: t0, Score: 1516},
						{ListID: "l-1", ItemID: "b", Timestamp: t0, Score: 1484},
					},
				}
				v, err := s.Commit(ctx, w)
				So(err, ShouldBeNil)

				Convey("Then both records and the history land", func() {
					So(v, ShouldResemble, repository.Versions{List: 1, Tournament: 1})
					l, err := s.GetList(ctx, "l-1")
					So(err, ShouldBeNil)
					So(l.Version, ShouldEqual, 1)
					tr, err := s.GetTournament(ctx, "l-1")
					So(err, ShouldBeNil)
					So(tr.Version, ShouldEqual, 1)
					pts, err := s.History(ctx, "l-1", "a")
					So(err, ShouldBeNil)
					So(pts, ShouldHaveLength, 1)
				})

				Convey("Then a stale tournament version writes nothing", func() {
					_, err := s.SaveTournament(ctx, w.Tournament, 1)
					So(err, ShouldBeNil)

					next := w
					next.List.Items[0].Score = 1600
					next.ListVersion, next.TournamentVersion = 1, 1
					_, err = s.Commit(ctx, next)
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)

					l, err := s.GetList(ctx, "l-1")
					So(err, ShouldBeNil)
					So(l.Version, ShouldEqual, 1)
					So(l.Items[0].Score, ShouldEqual, 1516)
					pts, err := s.History(ctx, "l-1", "a")
					So(err, ShouldBeNil)
					So(pts, ShouldHaveLength, 1)
				})

				Convey("Then a stale list version writes nothing", func() {
					l, err := s.GetList(ctx, "l-1")
					So(err, ShouldBeNil)
					_, err = s.SaveList(ctx, l, l.Version)
					So(err, ShouldBeNil)

					next := w
					next.ListVersion, next.TournamentVersion = 1, 1
					_, err = s.Commit(ctx, next)
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)

					tr, err := s.GetTournament(ctx, "l-1")
					So(err, ShouldBeNil)
					So(tr.Version, ShouldEqual, 1)
					pts, err := s.History(ctx, "l-1", "b")
					So(err, ShouldBeNil)
					So(pts, ShouldHaveLength, 1)
				})
			})

			Convey("When a write mixes lists", func() {
				_, err := s.Commit(ctx, repository.Write{
					List:       sampleList(),
					Tournament: model.Tournament{ID: "t-1", ListID: "other"},
				})
				So(errors.Is(err, repository.ErrInvalidWrite), ShouldBeTrue)

				_, err = s.Commit(ctx, repository.Write{
					List:       sampleList(),
					Tournament: model.Tournament{ID: "t-1", ListID: "l-1"},
					History:    []model.HistoryPoint{{ListID: "other", ItemID: "a"}},
				})

				Convey("Then it is rejected before anything is stored", func() {
					So(errors.Is(err, repository.ErrInvalidWrite), ShouldBeTrue)
					_, err := s.GetList(ctx, "l-1")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	Convey("Given a sqlite file with saved state", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "reopen.db")

		s, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		_, err = s.SaveList(ctx, sampleList(), 0)
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When the database is opened again", func() {
			s2, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = s2.Close() }()

			got, err := s2.GetList(ctx, "l-1")

			Convey("Then the list is still there", func() {
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, 1)
				So(got.Items, ShouldHaveLength, 2)
			})
		})
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		So(s.Close(), ShouldBeNil)

		Convey("Then every operation reports ErrClosed", func() {
			_, err := s.GetList(ctx, "l-1")
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			_, err = s.SaveList(ctx, sampleList(), 0)
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			_, err = s.GetTournament(ctx, "l-1")
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			_, err = s.SaveTournament(ctx, model.Tournament{ListID: "l-1"}, 0)
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			So(errors.Is(s.AppendHistory(ctx, model.HistoryPoint{ListID: "l-1", ItemID: "a"}), repository.ErrClosed), ShouldBeTrue)
			_, err = s.History(ctx, "l-1", "a")
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			_, err = s.Commit(ctx, repository.Write{List: sampleList(), Tournament: model.Tournament{ListID: "l-1"}})
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
		})

		Convey("Then closing again is harmless", func() {
			So(s.Close(), ShouldBeNil)
		})
	})
}
