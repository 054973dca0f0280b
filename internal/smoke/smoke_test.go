package smoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/cinerec/internal/adapters/http/api"
	"github.com/okian/cinerec/internal/adapters/http/site"
	"github.com/okian/cinerec/internal/adapters/repository"
	service "github.com/okian/cinerec/internal/app"
	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var initLogger sync.Once

// fixedRanker answers every subject with the same list, including an
// unknown id and a duplicate.
type fixedRanker struct{}

func (fixedRanker) Rank(context.Context, string, ranking.Mode) (ranking.List, error) {
	return ranking.List{"m3", "ghost", "m1", "m3"}, nil
}

type failingRanker struct{}

func (failingRanker) Rank(_ context.Context, subject string, mode ranking.Mode) (ranking.List, error) {
	return nil, &ranking.ProcessError{Mode: mode, Subject: subject, ExitCode: 2, Stderr: "no model"}
}

func newServer(t *testing.T, r ranking.Ranker) *httptest.Server {
	t.Helper()
	initLogger.Do(func() { _ = logger.Init(logger.WithWriter(testWriter{})) })

	items := []model.Item{
		{ItemID: "m1", Title: "Heat", ImageURL: "heat.jpg"},
		{ItemID: "m2", Title: "Ronin"},
		{ItemID: "m3", Title: "Heat Wave", ImageURL: "wave.jpg"},
		{ItemID: "m4", Title: "Thief", ImageURL: "thief.jpg"},
		{ItemID: "m5", Title: "Collateral", ImageURL: "collateral.jpg"},
	}
	interactions := []model.Interaction{
		{UserID: "u1", ItemID: "m3"}, {UserID: "u2", ItemID: "m3"},
		{UserID: "u1", ItemID: "m1"}, {UserID: "u3", ItemID: "deleted"},
	}
	store, err := repository.NewMemoryStore(items, interactions)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	svc := service.New(service.WithStore(store), service.WithRanker(r), service.WithWorkerCount(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	router := api.NewRouter(api.RouterConfig{})
	site.Register(context.Background(), router)
	api.NewServer(svc, svc).Register(context.Background(), router)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func testConfig(url string) *Config {
	return &Config{
		BaseURL:   url,
		Users:     []string{"u1", "u2"},
		PageLimit: 2,
		MaxPages:  10,
		Workers:   4,
		Timeout:   5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a healthy service", t, func() {
		srv := newServer(t, fixedRanker{})

		Convey("When the smoke run executes", func() {
			stats, err := Run(context.Background(), testConfig(srv.URL))

			Convey("Then every check should pass", func() {
				So(err, ShouldBeNil)
				So(stats.Failures, ShouldEqual, 0)
				So(stats.Checks, ShouldEqual, len(checks))
				So(stats.Recommendations, ShouldEqual, 2+lookupSample)
				So(stats.Requests, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a service whose ranking process fails", t, func() {
		srv := newServer(t, failingRanker{})

		Convey("When the smoke run executes", func() {
			stats, err := Run(context.Background(), testConfig(srv.URL))

			Convey("Then only the recommendation check should fail", func() {
				So(errors.Is(err, ErrChecksFailed), ShouldBeTrue)
				So(stats.Failures, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an invalid page limit", t, func() {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.PageLimit = 0
		_, err := Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestCheckPagination(t *testing.T) {
	Convey("Given a service reporting a wrong page count", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"itemId":"a"}],"pagination":{"currentPage":1,"totalPages":7,"totalItems":3}}`))
		}))
		defer srv.Close()

		err := checkPagination(context.Background(), newClient(srv.URL, time.Second), testConfig(srv.URL), &state{stats: &Stats{}})

		Convey("Then the mismatch should be reported", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "totalPages")
		})
	})

	Convey("Given a service repeating an item across pages", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"itemId":"a"},{"itemId":"b"}],"pagination":{"currentPage":1,"totalPages":2,"totalItems":4}}`))
		}))
		defer srv.Close()

		err := checkPagination(context.Background(), newClient(srv.URL, time.Second), testConfig(srv.URL), &state{stats: &Stats{}})

		Convey("Then the check should fail", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSearchWord(t *testing.T) {
	Convey("Given catalog items", t, func() {
		items := []Item{
			{ItemID: "a", Title: "Untitled Without Art"},
			{ItemID: "b", Title: "The Heat, Again", ImageURL: "x.jpg"},
		}

		Convey("Then the longest word of an item with artwork should be chosen", func() {
			So(searchWord(items), ShouldEqual, "Again")
		})

		Convey("Then no word should be chosen without artwork", func() {
			So(searchWord(items[:1]), ShouldBeEmpty)
		})
	})
}
