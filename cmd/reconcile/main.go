// reconcile runs reconciliation sweeps outside the API process, for cron
// jobs or an operator recovering from a processor outage.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ticketing/internal/app"
	"ticketing/internal/schema"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		staleAfter time.Duration
		batchSize  int
		loop       bool
		interval   time.Duration
		timeout    time.Duration
	)

	flagSet := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	flagSet.DurationVar(&staleAfter, "stale-after", 0, "age after which a pending order is reconciled (default from RECONCILER_STALE_ORDER_AFTER)")
	flagSet.IntVar(&batchSize, "batch", 0, "rows examined per sweep (default from RECONCILER_BATCH_SIZE)")
	flagSet.BoolVar(&loop, "loop", false, "keep sweeping every --interval instead of exiting after one pass")
	flagSet.DurationVar(&interval, "interval", time.Minute, "time between sweeps with --loop")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Minute, "deadline for a single sweep")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	_ = godotenv.Load()
	log := logger.GetDefault()

	cfg := config.Load()
	if staleAfter > 0 {
		cfg.Reconciler.StaleOrderAfter = staleAfter
	}
	if batchSize > 0 {
		cfg.Reconciler.BatchSize = batchSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := database.InitDB(cfg, log, schema.Models()...)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := app.New(cfg, db, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		report, err := engine.Reconciler.Sweep(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		out, _ := json.Marshal(report)
		fmt.Println(string(out))

		if !loop {
			return nil
		}
		time.Sleep(interval)
	}
}
