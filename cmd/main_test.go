package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/zeroflops/internal/adapters/repository"
	app "github.com/okian/zeroflops/internal/app"
	"github.com/okian/zeroflops/internal/config"
	"github.com/okian/zeroflops/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a loaded configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When the memory driver is selected", func() {
			s, err := openStore(ctx, cfg)

			convey.Convey("Then a memory store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := s.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the sqlite driver is selected", func() {
			cfg.StoreDriver = "sqlite"
			cfg.StorePath = filepath.Join(t.TempDir(), "zeroflops.db")
			s, err := openStore(ctx, cfg)

			convey.Convey("Then a sqlite store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := s.(*repository.SQLiteStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "postgres"
			_, err := openStore(ctx, cfg)

			convey.Convey("Then the config is reported invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("ZEROFLOPS_ADDR", ":8181")
		t.Setenv("ZEROFLOPS_STORE_DRIVER", "sqlite")
		t.Setenv("ZEROFLOPS_STORE_PATH", filepath.Join(t.TempDir(), "env.db"))

		convey.Convey("When configuration is loaded and a store opened", func() {
			ctx := context.Background()
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			s, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = s.Close() }()

			convey.Convey("Then the overrides are applied", func() {
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				_, ok := s.(*repository.SQLiteStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the wired HTTP handler", t, func() {
		ctx := context.Background()
		svc := app.New(repository.NewMemoryStore(ctx), app.OptionsFromConfig(config.New())...)
		defer func() { _ = svc.Close() }()
		registerRuntimeCollectors()
		registerRuntimeCollectors()
		h := newHandler(svc)

		convey.Convey("When a list is created through it", func() {
			req := httptest.NewRequest(http.MethodPost, "/lists", strings.NewReader(`{"id": "l", "items": [{"id": "a"}]}`))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			convey.Convey("Then the service stores it", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)
				l, err := svc.GetList(ctx, "l")
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Items, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the OpenAPI document is requested", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			convey.Convey("Then it is served", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "openapi: 3.0.3")
			})
		})

		convey.Convey("When the health endpoint is scraped", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			convey.Convey("Then runtime metrics are included", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "go_goroutines")
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given an address and handler", t, func() {
		srv := newHTTPServer(":0", http.NewServeMux())

		convey.Convey("Then the server carries the configured timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.IdleTimeout, convey.ShouldEqual, idleTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})
	})
}
