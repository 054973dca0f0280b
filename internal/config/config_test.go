package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/cinerec/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5001")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMongo)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "recommender")
			convey.So(cfg.RankerExecutable, convey.ShouldEqual, "python3")
			convey.So(cfg.RankerWorkdir, convey.ShouldEqual, "ml-services")
			convey.So(cfg.RankerUserScript, convey.ShouldEqual, "predict.py")
			convey.So(cfg.RankerItemScript, convey.ShouldEqual, "neighbors.py")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.DefaultPageLimit, convey.ShouldEqual, 20)
			convey.So(cfg.MaxPageLimit, convey.ShouldEqual, 100)
			convey.So(cfg.PopularLimit, convey.ShouldEqual, 10)
			convey.So(cfg.RankerTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.RateLimitWindow(), convey.ShouldEqual, time.Minute)
		})

		convey.Convey("Then the mongo store should require a uri", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "mongo_uri")
		})

		convey.Convey("Then the memory store should validate without a uri", func() {
			cfg.StoreDriver = config.StoreMemory
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid memory-backed config", t, func() {
		cfg := config.New(context.Background())
		cfg.StoreDriver = config.StoreMemory

		cases := map[string]func(*config.Config){
			"unknown driver":      func(c *config.Config) { c.StoreDriver = "sqlite" },
			"blank addr":          func(c *config.Config) { c.Addr = "  " },
			"no executable":       func(c *config.Config) { c.RankerExecutable = "" },
			"zero workers":        func(c *config.Config) { c.WorkerCount = 0 },
			"zero queue":          func(c *config.Config) { c.QueueSize = 0 },
			"max below default":   func(c *config.Config) { c.MaxPageLimit = 5 },
			"negative timeout":    func(c *config.Config) { c.RankerTimeoutMS = -1 },
			"negative rate limit": func(c *config.Config) { c.RateLimitRequests = -1 },
		}
		for name, mutate := range cases {
			convey.Convey("Then "+name+" should be rejected", func() {
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_CORSOrigins(t *testing.T) {
	convey.Convey("Given a comma separated origin list", t, func() {
		cfg := config.New(context.Background())
		cfg.CORSAllowedOrigins = " https://a.example, ,https://b.example "

		convey.So(cfg.CORSOrigins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})

		convey.Convey("Then an empty list should yield nil", func() {
			cfg.CORSAllowedOrigins = ""
			convey.So(cfg.CORSOrigins(), convey.ShouldBeNil)
		})
	})
}
