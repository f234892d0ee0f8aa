package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"tierdb/internal/config"
	adminhttp "tierdb/internal/http"
	"tierdb/pkg/compaction"
	"tierdb/pkg/metrics"
	"tierdb/pkg/sstable"
)

// registryCompactor is a stand-in merge executor: it swaps the input
// tables for a single merged handle. A real executor would rewrite the
// data files before touching the registry.
type registryCompactor struct {
	registry *sstable.Registry
}

func (c *registryCompactor) Compact(ctx context.Context, tables []compaction.Table) error {
	var size, keys int64
	for _, t := range tables {
		size += t.Size()
		keys += t.EstimatedKeys()
	}

	id := c.registry.NextID()
	merged := sstable.New(id, fmt.Sprintf("merged-%d.sst", id), size, keys)
	c.registry.Replace(tables, []*sstable.SSTable{merged})

	slog.Info("merged tables", "inputs", len(tables), "output_id", id, "output_bytes", size)
	return nil
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	initLogger(&cfg)

	strategy, unrecognized, err := compaction.NewSizeTieredStrategy(
		cfg.Compaction.MinThreshold,
		cfg.Compaction.MaxThreshold,
		cfg.Compaction.Options,
	)
	if err != nil {
		return fmt.Errorf("invalid compaction configuration: %w", err)
	}
	for key, value := range unrecognized {
		slog.Warn("ignoring unrecognized compaction option", "key", key, "value", value)
	}

	registry := sstable.NewRegistry()
	collector := metrics.NewCollector()

	controller := compaction.NewController(
		strategy,
		registry,
		&registryCompactor{registry: registry},
		time.Duration(cfg.Compaction.IntervalSeconds)*time.Second,
		collector,
	)

	server := adminhttp.NewServer(registry, strategy, collector, strconv.Itoa(cfg.Server.Port))
	if err := server.Start(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	controller.Start(ctx)
	slog.Info("tierdb started", "port", cfg.Server.Port, "interval_seconds", cfg.Compaction.IntervalSeconds)

	<-ctx.Done()

	controller.Stop()
	if err := server.Stop(); err != nil {
		return err
	}

	slog.Info("tierdb stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
