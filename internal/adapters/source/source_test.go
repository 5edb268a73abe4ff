package source_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/zeroflops/internal/adapters/source"
	"github.com/okian/zeroflops/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func existing() model.List {
	rank := 1
	return model.List{
		ID:   "l-1",
		Mode: model.ModeSort,
		Items: []model.Item{
			{
				ID:         "sp:1",
				Name:       "Old Name",
				Score:      1532,
				Rank:       &rank,
				Wins:       2,
				Losses:     1,
				Attributes: map[string]model.Value{"year": model.Number(1997)},
			},
		},
		Version: 4,
	}
}

func TestImporter_Merge(t *testing.T) {
	Convey("Given a list with one imported item", t, func() {
		ctx := context.Background()
		list := existing()
		im := source.New()

		Convey("When the source returns it again with fresh metadata plus new entries", func() {
			out, res, err := im.Merge(ctx, list, []source.Entry{
				{ExternalID: "sp:2", Name: "Airbag", Attributes: map[string]model.Value{"year": model.Number(1997)}},
				{ExternalID: "sp:1", Name: "Paranoid Android", Attributes: map[string]model.Value{"year": model.Number(1997), "track": model.Number(2)}},
				{ExternalID: "sp:2", Name: "Airbag (again)"},
				{ExternalID: "sp:3", Name: "Lucky"},
			})
			So(err, ShouldBeNil)

			Convey("Then the counts add up", func() {
				So(res, ShouldResemble, source.Result{Added: 2, Updated: 1, Duplicates: 1})
			})

			Convey("Then the known item keeps its rating state", func() {
				a := out.Items[0]
				So(a.Name, ShouldEqual, "Paranoid Android")
				So(a.Score, ShouldEqual, 1532)
				So(*a.Rank, ShouldEqual, 1)
				So(a.Wins, ShouldEqual, 2)
				So(a.Losses, ShouldEqual, 1)
				So(a.Attributes, ShouldContainKey, "track")
			})

			Convey("Then new items are appended in source order at the initial score", func() {
				So(out.Items, ShouldHaveLength, 3)
				So(out.Items[1].ID, ShouldEqual, "sp:2")
				So(out.Items[1].Name, ShouldEqual, "Airbag")
				So(out.Items[1].Score, ShouldEqual, source.DefaultInitialScore)
				So(out.Items[1].Rank, ShouldBeNil)
				So(out.Items[2].ID, ShouldEqual, "sp:3")
			})

			Convey("Then the input list and version are untouched", func() {
				So(list.Items, ShouldHaveLength, 1)
				So(list.Items[0].Name, ShouldEqual, "Old Name")
				So(out.Version, ShouldEqual, 4)
			})
		})

		Convey("When a custom initial score is configured", func() {
			out, _, err := source.New(source.WithInitialScore(1000), source.WithDedupeSize(0)).
				Merge(ctx, list, []source.Entry{{ExternalID: "sp:9", Name: "No Surprises"}})

			Convey("Then new items start there", func() {
				So(err, ShouldBeNil)
				So(out.Items[1].Score, ShouldEqual, 1000)
			})
		})

		Convey("When an entry has no external id", func() {
			_, _, err := im.Merge(ctx, list, []source.Entry{{Name: "??"}})

			Convey("Then the merge is rejected", func() {
				So(errors.Is(err, source.ErrInvalidEntry), ShouldBeTrue)
			})
		})

		Convey("When an entry shadows a reserved field", func() {
			_, _, err := im.Merge(ctx, list, []source.Entry{
				{ExternalID: "sp:4", Attributes: map[string]model.Value{"score": model.Number(1)}},
			})

			Convey("Then the merged list fails validation", func() {
				So(errors.Is(err, model.ErrInvalidItem), ShouldBeTrue)
			})
		})

		Convey("When nothing is imported", func() {
			out, res, err := im.Merge(ctx, list, nil)

			Convey("Then the list comes back unchanged", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, source.Result{})
				So(out, ShouldResemble, list)
			})
		})
	})
}
