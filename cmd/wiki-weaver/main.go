package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/game"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/alvmarrod/wiki-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Exit codes
const (
	exitFound     = 0
	exitNotFound  = 1
	exitBadConfig = 2
)

// options are command line settings that are not part of the game config
type options struct {
	configPath  string
	debug       int
	history     int
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, opts, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitFound
		}
		logrus.Errorf("Invalid configuration: %v", err)
		return exitBadConfig
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "wiki-weaver v%s\n", version.Version)
		return exitFound
	}

	if opts.debug >= 1 {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if opts.history > 0 {
		return listHistory(cfg.HistoryDBPath, opts.history, stdout)
	}

	logrus.Infof("Wiki Weaver v%s starting...", version.Version)
	printConfig(cfg)

	// Initialize history storage, only when asked for
	var store *storage.Storage
	if cfg.HistoryDBPath != "" {
		store, err = storage.NewStorage(cfg.HistoryDBPath)
		if err != nil {
			logrus.Errorf("Failed to initialize storage: %v", err)
			return exitBadConfig
		}
		defer store.Close()
		logrus.Infof("History database initialized: %s", cfg.HistoryDBPath)
	}

	tracker := metrics.NewTracker()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, tracker)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start progress logger
	var wg sync.WaitGroup
	stopProgress := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	g := game.New(cfg, crawler.NewFetcher(cfg), game.WithTracker(tracker))
	logrus.Infof("Starting coordinator (run %s)", g.RunID())

	result, err := g.Play(ctx)

	close(stopProgress)
	wg.Wait()

	reason, code := "found", exitFound
	switch {
	case err == nil:
		reportResult(result)
	case errors.Is(err, game.ErrExhausted):
		logrus.Errorf("Search failed: %v", err)
		reason, code = "exhausted", exitNotFound
	case errors.Is(err, context.Canceled):
		logrus.Warn("Search interrupted")
		reason, code = "signal", exitNotFound
	default:
		logrus.Errorf("Search failed: %v", err)
		reason, code = "error", exitNotFound
	}

	logrus.Info("Final stats: " + tracker.LogProgress())
	logrus.Info(graphStats(g))

	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}

	if store != nil && result != nil {
		rec := storage.GameRecord{
			GameID:       result.RunID.String(),
			BaseURL:      cfg.BaseURL,
			Start:        result.Start,
			Target:       result.Target,
			Found:        err == nil,
			Hops:         result.Hops(),
			Path:         result.Path,
			Rounds:       result.Rounds,
			PagesFetched: tracker.GetSnapshot().PagesFetched,
			SearchMs:     result.SearchDuration.Milliseconds(),
		}
		if err := store.SaveGame(rec); err != nil {
			logrus.Errorf("Failed to record game: %v", err)
		}
	}

	return code
}

// parseArgs builds the configuration from defaults, an optional config file and flags.
// Flags only override the file when they were given explicitly.
func parseArgs(args []string) (*config.Config, *options, error) {
	fs := pflag.NewFlagSet("wiki-weaver", pflag.ContinueOnError)

	var (
		opts    options
		flagCfg config.Config
	)
	fs.StringVarP(&flagCfg.Start, "start", "s", config.DefaultStart, "Starting page for the search")
	fs.StringVarP(&flagCfg.Target, "target", "t", config.DefaultTarget, "Target page for the search")
	fs.StringVarP(&flagCfg.BaseURL, "base-url", "b", config.DefaultBaseURL, "Base wiki url, the search stays in that domain")
	fs.IntVarP(&flagCfg.Workers, "workers", "w", config.DefaultWorkers, "Number of parallel workers, max 255 (0 means default)")
	fs.StringVar(&flagCfg.HistoryDBPath, "history-db", "", "SQLite file recording finished games")
	fs.StringVar(&flagCfg.MetricsPath, "metrics-path", "", "Write crawl metrics as JSON to this file on exit")
	fs.StringVar(&flagCfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	fs.StringVar(&opts.configPath, "config", "", "JSON or TOML config file")
	fs.CountVarP(&opts.debug, "debug", "d", "Turn debugging information on")
	fs.IntVar(&opts.history, "history", 0, "List the N most recent games from --history-db and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if flagCfg.Workers < 0 || flagCfg.Workers > config.MaxWorkers {
		return nil, nil, fmt.Errorf("workers must be between 0 and %d", config.MaxWorkers)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, nil, err
		}
	}

	overrides := map[string]func(){
		"start":        func() { cfg.Start = flagCfg.Start },
		"target":       func() { cfg.Target = flagCfg.Target },
		"base-url":     func() { cfg.BaseURL = flagCfg.BaseURL },
		"workers":      func() { cfg.Workers = flagCfg.Workers },
		"history-db":   func() { cfg.HistoryDBPath = flagCfg.HistoryDBPath },
		"metrics-path": func() { cfg.MetricsPath = flagCfg.MetricsPath },
		"metrics-addr": func() { cfg.MetricsAddr = flagCfg.MetricsAddr },
	}
	for name, apply := range overrides {
		if fs.Changed(name) {
			apply()
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if opts.history > 0 && cfg.HistoryDBPath == "" {
		return nil, nil, fmt.Errorf("--history needs --history-db")
	}

	return cfg, &opts, nil
}

func printConfig(cfg *config.Config) {
	logrus.Info("Configuration:")
	logrus.Infof("Base URL   :  [%s]", cfg.BaseURL)
	logrus.Infof("Start page :  [%s]", cfg.Start)
	logrus.Infof("Target page:  [%s]", cfg.Target)
	logrus.Infof("Workers    :  [%d]", cfg.Workers)
}

func reportResult(result *game.Result) {
	logrus.Info("Target has been found!")
	logrus.Infof("[%d] hops needed", result.Hops())
	logrus.Infof("%s", strings.Join(result.Path, " -> "))
	logrus.Infof("Search took [%d]s. Path calculation took [%d]ms",
		int(result.SearchDuration.Seconds()), result.PathDuration.Milliseconds())
}

func graphStats(g *game.Game) string {
	nodes, edges := g.Graph().GetStats()
	return fmt.Sprintf("Graph: %d nodes, %d edges", nodes, edges)
}

func serveMetrics(addr string, tracker *metrics.Tracker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", tracker.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Metrics server failed: %v", err)
		}
	}()

	logrus.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

func listHistory(dbPath string, limit int, out io.Writer) int {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		logrus.Errorf("Failed to open history: %v", err)
		return exitBadConfig
	}
	defer store.Close()

	games, err := store.RecentGames(limit)
	if err != nil {
		logrus.Errorf("Failed to read history: %v", err)
		return exitNotFound
	}

	for _, g := range games {
		status := "not found"
		if g.Found {
			status = fmt.Sprintf("%d hops", g.Hops)
		}
		fmt.Fprintf(out, "%s  %s -> %s  %s  (%d rounds, %d pages, %dms)\n",
			g.CreatedAt.Format(time.RFC3339), g.Start, g.Target, status, g.Rounds, g.PagesFetched, g.SearchMs)
		if len(g.Path) > 0 {
			fmt.Fprintf(out, "    %s\n", strings.Join(g.Path, " -> "))
		}
	}

	return exitFound
}
