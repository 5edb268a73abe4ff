package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		So(json.Unmarshal([]byte(line), &rec), ShouldBeNil)
		out = append(out, rec)
	}
	return out
}

func TestLoggerInit(t *testing.T) {
	Convey("Given logger initialization", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then a global logger is available", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When an unknown format is requested", func() {
			err := Init(WithFormat("xml"))

			Convey("Then initialization fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an unknown level is requested", func() {
			err := Init(WithLevel("loud"))

			Convey("Then initialization fails with ErrUnknownLevel", func() {
				So(errors.Is(err, ErrUnknownLevel), ShouldBeTrue)
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithWriter(&buf), WithLevel("info")), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "match resolved",
				String("match_id", "1-1"),
				Int("round", 1),
				Float64("score", 1216),
				Bool("changed", true),
				Duration("took", 2*time.Millisecond),
			)

			Convey("Then the record carries every field and a source", func() {
				recs := decodeLines(&buf)
				So(recs, ShouldHaveLength, 1)
				So(recs[0]["msg"], ShouldEqual, "match resolved")
				So(recs[0]["level"], ShouldEqual, "INFO")
				So(recs[0]["match_id"], ShouldEqual, "1-1")
				So(recs[0]["round"], ShouldEqual, 1.0)
				So(recs[0]["changed"], ShouldEqual, true)
				So(recs[0]["source"], ShouldContainSubstring, "logger_test.go:")
			})
		})

		Convey("When debug is below the level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered at runtime", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible")

			Convey("Then debug records appear", func() {
				So(decodeLines(&buf), ShouldHaveLength, 1)
			})
		})

		Convey("When using a named logger with extra fields", func() {
			Named("service").With(String("list_id", "l-1")).Warn(ctx, "conflict", Error(errors.New("stale")))

			Convey("Then component and fields are attached", func() {
				recs := decodeLines(&buf)
				So(recs, ShouldHaveLength, 1)
				So(recs[0]["component"], ShouldEqual, "service")
				So(recs[0]["list_id"], ShouldEqual, "l-1")
				So(recs[0]["error"], ShouldEqual, "stale")
			})
		})
	})
}

func TestLoggerText(t *testing.T) {
	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)

		Get().Error(context.Background(), "boom", String("k", "v"))

		Convey("Then output is key=value formatted", func() {
			So(buf.String(), ShouldContainSubstring, "level=ERROR")
			So(buf.String(), ShouldContainSubstring, "msg=boom")
			So(buf.String(), ShouldContainSubstring, "k=v")
		})
	})
}
