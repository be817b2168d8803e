package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"holidaydeals/config"
	"holidaydeals/logging"
	"holidaydeals/scheduler"
	"holidaydeals/scraper"
	"holidaydeals/server"
	"holidaydeals/storage"
)

// store is the full backend surface main wires together. Both storage
// implementations satisfy it.
type store interface {
	server.Store
	scraper.DealStore
	scheduler.URLSource
	EnsureProvider(ctx context.Context, name, slug, baseURL, departureAirport string) (int64, error)
	TouchProvider(ctx context.Context, id int64) error
}

func main() {
	scrapeURLs := flag.String("scrape", "", "comma-separated listing URLs to scrape once, then exit")
	logPath := flag.String("log", "scraper.log", "log file path")
	reset := flag.Bool("reset", false, "clear all stored data before starting (sqlite only)")
	flag.Parse()

	logWriter, err := logging.Setup(*logPath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logWriter.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openStore(ctx, cfg, *reset)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeDB()

	provider := cfg.Providers["jet2"]
	providerID, err := db.EnsureProvider(ctx, provider.Name, provider.Slug, provider.BaseURL, provider.DepartureAirport)
	if err != nil {
		log.Fatalf("Failed to register provider: %v", err)
	}

	browser := scraper.NewBrowser(scraper.BrowserOptions{
		Headless:       cfg.Scraper.Headless,
		NavTimeout:     time.Duration(cfg.Scraper.NavTimeoutMS) * time.Millisecond,
		HeadingTimeout: time.Duration(cfg.Scraper.HeadingTimeoutMS) * time.Millisecond,
		SettleDelay:    time.Duration(cfg.Scraper.SettleDelayMS) * time.Millisecond,
	})
	defer browser.Release()

	orch := scraper.NewOrchestrator(db, browser, providerID,
		time.Duration(cfg.Scraper.DelayMS)*time.Millisecond)

	if *scrapeURLs != "" {
		runOnce(ctx, orch, db, providerID, *scrapeURLs)
		return
	}

	sched := scheduler.New(db, orch, providerID, scheduler.Options{
		CronExpr:  cfg.Scheduler.Cron,
		Interval:  cfg.Scheduler.Interval,
		BatchSize: cfg.Scheduler.RefreshBatch,
	})
	if started, err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	} else if !started {
		log.Printf("Scheduler disabled: no cron or interval configured")
	}
	defer sched.Stop()

	srv := server.New(db, orch, providerID)
	log.Printf("Listening on %s", cfg.ServerAddr)
	if err := srv.Run(ctx, cfg.ServerAddr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

// runOnce scrapes a single batch from the CLI and prints the summary.
func runOnce(ctx context.Context, orch *scraper.Orchestrator, db store, providerID int64, rawURLs string) {
	var urls []string
	for _, u := range strings.Split(rawURLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	result, err := orch.ScrapeBatch(ctx, urls)
	if err != nil {
		log.Fatalf("Scrape failed: %v", err)
	}

	if err := db.TouchProvider(ctx, providerID); err != nil {
		log.Printf("Warning: failed to update provider timestamp: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func openStore(ctx context.Context, cfg *config.Config, reset bool) (store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		log.Printf("Using Postgres store")
		return pg, pg.Close, nil
	}

	lite, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if reset {
		if err := lite.ResetAllData(); err != nil {
			lite.Close()
			return nil, nil, err
		}
		log.Printf("All stored data cleared")
	}
	log.Printf("Using SQLite store at %s", cfg.DBPath)
	return lite, func() { lite.Close() }, nil
}
