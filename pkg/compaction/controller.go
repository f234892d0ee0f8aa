package compaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhangyunhao116/fastrand"

	"tierdb/pkg/metrics"
)

// TableSource supplies consistent snapshots of live tables and tracks
// which of them are claimed by in-flight compactions.
type TableSource interface {
	// Snapshot returns the live tables not currently being compacted.
	Snapshot() []Table
	// Claim marks tables as being compacted. It returns false without
	// claiming anything if any table is already claimed or gone.
	Claim(tables []Table) bool
	// Release drops claims, normally after the executor finished.
	Release(tables []Table)
}

// Compactor is the merge executor boundary. It reads the given tables
// and installs their replacement; how long that takes, and whether it
// succeeds, is its own business.
type Compactor interface {
	Compact(ctx context.Context, tables []Table) error
}

// Controller re-evaluates the compaction strategy on a fixed tick and
// hands the chosen candidates to the executor. Every evaluation works
// on a fresh snapshot, so a stale decision is simply discarded on the
// next tick.
type Controller struct {
	strategy  *SizeTieredStrategy
	source    TableSource
	compactor Compactor
	interval  time.Duration
	collector *metrics.Collector

	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(strategy *SizeTieredStrategy, source TableSource, compactor Compactor, interval time.Duration, collector *metrics.Collector) *Controller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Controller{
		strategy:  strategy,
		source:    source,
		compactor: compactor,
		interval:  interval,
		collector: collector,
		cancel:    func() {},
		done:      make(chan struct{}),
	}
}

// Start launches the evaluation loop in the background.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Stop cancels the loop and waits for it to drain.
func (c *Controller) Stop() {
	c.cancel()
	<-c.done
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	timer := time.NewTimer(c.tickAfter())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.runOnce(ctx)
			timer.Reset(c.tickAfter())
		}
	}
}

// tickAfter spreads ticks with up to 25% jitter so several controllers
// in one process do not evaluate in lockstep.
func (c *Controller) tickAfter() time.Duration {
	jitterMillis := uint32(c.interval / 4 / time.Millisecond)
	if jitterMillis == 0 {
		return c.interval
	}
	return c.interval + time.Duration(fastrand.Uint32n(jitterMillis))*time.Millisecond
}

// runOnce performs a single evaluation round. Returns true when a
// compaction was submitted to the executor.
func (c *Controller) runOnce(ctx context.Context) bool {
	tables := c.source.Snapshot()
	c.collector.Inc("compaction_rounds_total", 1)

	candidates := c.strategy.SelectCandidates(tables)
	if len(candidates) == 0 {
		c.collector.Inc("compaction_rounds_empty", 1)
		return false
	}

	if !c.source.Claim(candidates) {
		// snapshot went stale under us, try again next tick
		c.collector.Inc("compaction_claim_conflicts", 1)
		return false
	}

	var totalSize int64
	for _, t := range candidates {
		totalSize += t.Size()
	}
	slog.Info("compaction candidates selected",
		"tables", len(candidates),
		"total_bytes", totalSize,
		"live_tables", len(tables),
	)

	if err := c.compactor.Compact(ctx, candidates); err != nil {
		slog.Error("compaction failed", "tables", len(candidates), "error", err)
		c.collector.Inc("compaction_errors", 1)
		c.source.Release(candidates)
		return false
	}

	c.collector.Inc("compactions_total", 1)
	c.collector.Inc("compaction_input_tables", float64(len(candidates)))
	c.source.Release(candidates)
	return true
}
