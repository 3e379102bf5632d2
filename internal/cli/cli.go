package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/citypulse/city-events/internal/config"
	"github.com/citypulse/city-events/internal/gate"
	"github.com/citypulse/city-events/internal/logger"
	"github.com/citypulse/city-events/internal/reconcile"
	"github.com/citypulse/city-events/internal/scheduler"
	"github.com/citypulse/city-events/internal/scraper"
	"github.com/citypulse/city-events/internal/storage"
)

var (
	flagOnce     bool
	flagInterval time.Duration
	flagDBPath   string
	flagVerbose  bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "city-events-ingest",
		Short: "Scrape city event listings into the shared catalog",
		Long: `Periodically collects event listings from external sites (eventbrite,
meetup, timeout), normalizes them into one canonical shape, and merges them
into the durable catalog without duplicates, expiring past events.`,
		SilenceUsage: true,
		RunE:         runIngest,
	}

	cmd.Flags().BoolVar(&flagOnce, "once", false, "Run a single ingestion cycle and exit")
	cmd.Flags().DurationVar(&flagInterval, "interval", 0, "Override the cycle interval (e.g. 30m)")
	cmd.Flags().StringVar(&flagDBPath, "db", "", "Override the catalog database path")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	return cmd
}

// runIngest is the main command logic
func runIngest(cmd *cobra.Command, args []string) error {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagInterval > 0 {
		cfg.CycleInterval = flagInterval
	}
	if flagDBPath != "" {
		cfg.DatabasePath = flagDBPath
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, os.Stdout))

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("initializing catalog: %w", err)
	}

	g := gate.New(cfg.RequestDelay, cfg.FetchTimeout, scraper.UserAgent)
	fetcher := scraper.NewFetcher(g, cfg.FetchTimeout)

	adapters, err := scraper.ForSources(cfg.Sources, fetcher, cfg.City)
	if err != nil {
		return fmt.Errorf("building adapters: %w", err)
	}

	reconciler := reconcile.New(store)
	sched := scheduler.New(adapters, reconciler, g, cfg.CycleInterval)

	if flagOnce {
		summary, _ := sched.RunCycle(ctx)
		return printSummary(summary)
	}

	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()
	return nil
}

// printSummary writes the cycle summary as JSON for --once runs, so
// cron-style callers can consume it.
func printSummary(summary scheduler.CycleSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
