package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/cinerec/internal/smoke"
	"github.com/okian/cinerec/pkg/logger"
)

// Default configuration constants.
const (
	defaultPageLimit  = 20
	defaultMaxPages   = 50
	defaultTimeout    = 60 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:5001", "Base URL of the service")
		users     = flag.String("users", "1,2,3", "Comma separated user ids")
		limit     = flag.Int("limit", defaultPageLimit, "Page size used when walking the catalog")
		pages     = flag.Int("pages", defaultMaxPages, "Maximum pages walked")
		workers   = flag.Int("workers", runtime.NumCPU(), "Concurrent recommendation requests")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		allowBusy = flag.Bool("allow-busy", false, "Count 503 busy answers as passing")
		verbose   = flag.Bool("verbose", false, "Log every recommendation response")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat("console")); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &smoke.Config{
		BaseURL:   strings.TrimRight(*baseURL, "/"),
		Users:     splitList(*users),
		PageLimit: *limit,
		MaxPages:  *pages,
		Workers:   *workers,
		Timeout:   *timeout,
		AllowBusy: *allowBusy,
		Verbose:   *verbose,
	}

	if _, err := smoke.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
