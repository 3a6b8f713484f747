package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/g960059/exile-onboard/internal/config"
	"github.com/g960059/exile-onboard/internal/db"
	"github.com/g960059/exile-onboard/internal/devserver"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fatal(err)
	}
	flag.StringVar(&cfg.DevAddr, "addr", cfg.DevAddr, "listen address for the dev backend")
	flag.StringVar(&cfg.DevDBPath, "db", cfg.DevDBPath, "SQLite path")
	verbose := flag.Bool("v", false, "log every request")
	reset := flag.Bool("reset", false, "drop every table before migrating, discarding stored runs and interests")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(ctx, cfg.DevDBPath)
	if err != nil {
		fatal(err)
	}
	defer store.Close() //nolint:errcheck

	if err := prepareStore(ctx, store, *reset, time.Now().UTC()); err != nil {
		fatal(err)
	}
	if *reset {
		logger.Info("store reset", "path", cfg.DevDBPath)
	}

	srv := devserver.NewServer(cfg, store, logger)
	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		fatal(err)
	}
}

// prepareStore migrates the store and seeds the fixture characters. With
// reset every migration is rolled back first.
func prepareStore(ctx context.Context, store *db.Store, reset bool, now time.Time) error {
	if reset {
		if err := db.RollbackAll(ctx, store.DB()); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
	}
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		return err
	}
	return devserver.Seed(ctx, store, now)
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "onboard-devd: %v\n", err)
	os.Exit(1)
}
