package history_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/zeroflops/internal/domain/history"
	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixture epoch

func at(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }

func TestSeries(t *testing.T) {
	Convey("Given points for two items", t, func() {
		points := []model.HistoryPoint{
			{ItemID: "a", Timestamp: at(2), Score: 2000},
			{ItemID: "b", Timestamp: at(0), Score: 50},
			{ItemID: "a", Timestamp: at(0), Score: 1000},
			{ItemID: "a", Timestamp: at(1), Score: 2000},
		}

		Convey("When smoothing with a one hour half-life", func() {
			got := history.Series(points, "a", time.Hour)

			Convey("Then each hour closes half the gap", func() {
				So(got, ShouldResemble, []types.SeriesPoint{
					{Timestamp: at(0), Score: 1000},
					{Timestamp: at(1), Score: 1500},
					{Timestamp: at(2), Score: 1750},
				})
			})
		})

		Convey("When the half-life is not positive", func() {
			got := history.Series(points, "a", 0)

			Convey("Then raw samples come back in time order", func() {
				So(got, ShouldResemble, []types.SeriesPoint{
					{Timestamp: at(0), Score: 1000},
					{Timestamp: at(1), Score: 2000},
					{Timestamp: at(2), Score: 2000},
				})
			})
		})

		Convey("When the item has no points", func() {
			So(history.Series(points, "zzz", time.Hour), ShouldBeNil)
		})
	})

	Convey("Given points sharing a timestamp", t, func() {
		points := []model.HistoryPoint{
			{ItemID: "a", Timestamp: at(0), Score: 1000},
			{ItemID: "a", Timestamp: at(0), Score: 1200},
			{ItemID: "a", Timestamp: at(3), Score: 900},
		}

		Convey("Then they are averaged into one sample", func() {
			got := history.Series(points, "a", -time.Second)
			So(got, ShouldHaveLength, 2)
			So(got[0].Score, ShouldEqual, 1100)
			So(got[1].Score, ShouldEqual, 900)
		})
	})

	Convey("Given the same points in shuffled orders", t, func() {
		var points []model.HistoryPoint
		for i := range 50 {
			points = append(points, model.HistoryPoint{
				ItemID:    "a",
				Timestamp: t0.Add(time.Duration(i%17) * 7 * time.Minute),
				Score:     1500 + float64((i*131)%97) - 48.3,
			})
		}
		want := history.Series(points, "a", 45*time.Minute)
		rng := rand.New(rand.NewSource(7))

		Convey("Then the series is identical", func() {
			for range 10 {
				shuffled := append([]model.HistoryPoint(nil), points...)
				rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
				So(history.Series(shuffled, "a", 45*time.Minute), ShouldResemble, want)
			}
		})
	})
}

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		r := history.NewRecorder(model.HistoryPoint{ItemID: "b", Timestamp: at(5), Score: 1480})
		r.Record("a", 1516, at(2))
		r.Record("a", 1500, at(1))

		Convey("Then items are listed in order", func() {
			So(r.Items(), ShouldResemble, []string{"a", "b"})
		})

		Convey("Then points come back chronologically", func() {
			pts := r.Points("a")
			So(pts, ShouldHaveLength, 2)
			So(pts[0].Score, ShouldEqual, 1500)
			So(pts[1].Score, ShouldEqual, 1516)
		})

		Convey("Then the latest point is the newest one", func() {
			p, ok := r.Latest("a")
			So(ok, ShouldBeTrue)
			So(p.Timestamp.Equal(at(2)), ShouldBeTrue)
			So(p.Score, ShouldEqual, 1516)

			_, ok = r.Latest("missing")
			So(ok, ShouldBeFalse)
		})

		Convey("Then the recorder's series matches the free function", func() {
			So(r.Series("a", time.Hour), ShouldResemble, history.Series(r.Points("a"), "a", time.Hour))
		})
	})
}
