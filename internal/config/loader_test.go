package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/cinerec/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the missing mongo uri should be fatal", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setEnv(map[string]string{
				"CINEREC_ADDR":              ":8080",
				"CINEREC_MONGO_URI":         "mongodb://db:27017",
				"CINEREC_QUEUE_SIZE":        "64",
				"CINEREC_WORKER_COUNT":      "3",
				"CINEREC_RANKER_TIMEOUT_MS": "1500",
				"CINEREC_LOG_LEVEL":         "debug",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://db:27017")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.RankerTimeoutMS, convey.ShouldEqual, 1500)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.MongoDatabase, convey.ShouldEqual, "recommender")
			})
		})

		convey.Convey("When only the unprefixed MONGO_URI and PORT are set", func() {
			setEnv(map[string]string{
				"MONGO_URI": "mongodb://legacy:27017",
				"PORT":      "7000",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should be honoured", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://legacy:27017")
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			})

			convey.Convey("Then prefixed keys should still win", func() {
				setEnv(map[string]string{"CINEREC_MONGO_URI": "mongodb://new:27017"})
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://new:27017")
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
store_driver: memory
addr: ":9090"
worker_count: 24
cors_allowed_origins: "https://a.example,https://b.example"
rate_limit_requests: 0
`)
			defer func() { _ = os.Remove(tmpFile) }()
			setEnv(map[string]string{
				"CINEREC_CONFIG":       tmpFile,
				"CINEREC_WORKER_COUNT": "32",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should override the file and the file the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.RateLimitRequests, convey.ShouldEqual, 0)
				convey.So(cfg.CORSOrigins(), convey.ShouldHaveLength, 2)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			setEnv(map[string]string{"CINEREC_CONFIG": tmpFile})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			setEnv(map[string]string{"CINEREC_CONFIG": "/non/existent/cinerec.yaml"})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			setEnv(map[string]string{
				"CINEREC_STORE_DRIVER": "memory",
				"CINEREC_QUEUE_SIZE":   "lots",
			})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			setEnv(map[string]string{"CINEREC_STORE_DRIVER": "postgres"})

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "store_driver")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

var configEnvVars = []string{
	"CINEREC_CONFIG",
	"CINEREC_ADDR",
	"CINEREC_MONGO_URI",
	"CINEREC_STORE_DRIVER",
	"CINEREC_QUEUE_SIZE",
	"CINEREC_WORKER_COUNT",
	"CINEREC_RANKER_TIMEOUT_MS",
	"CINEREC_LOG_LEVEL",
	"MONGO_URI",
	"PORT",
}

func setEnv(vars map[string]string) {
	for k, v := range vars {
		_ = os.Setenv(k, v)
	}
}

func clearConfigEnvVars() {
	for _, envVar := range configEnvVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cinerec-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
