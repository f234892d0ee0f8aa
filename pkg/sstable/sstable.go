package sstable

import (
	"sync/atomic"

	"tierdb/pkg/metrics"
)

// SSTable is a handle to one immutable on-disk sorted table. Size and
// estimated key count are fixed when the table is written; only the
// read meter moves, driven by the read path.
type SSTable struct {
	id            uint64
	path          string
	size          int64
	estimatedKeys int64
	readMeter     atomic.Pointer[metrics.RateMeter]
}

// New creates a handle without read history; the meter stays nil until
// the first read is recorded.
func New(id uint64, path string, size, estimatedKeys int64) *SSTable {
	if estimatedKeys < 1 {
		estimatedKeys = 1
	}
	return &SSTable{
		id:            id,
		path:          path,
		size:          size,
		estimatedKeys: estimatedKeys,
	}
}

// Restore creates a handle with a meter restored to previously
// persisted rates, used when reopening tables after a restart.
func Restore(id uint64, path string, size, estimatedKeys int64, fifteenMinuteRate, twoHourRate float64) *SSTable {
	t := New(id, path, size, estimatedKeys)
	t.readMeter.Store(metrics.RestoreRateMeter(fifteenMinuteRate, twoHourRate))
	return t
}

func (t *SSTable) ID() uint64 { return t.id }

func (t *SSTable) Path() string { return t.path }

func (t *SSTable) Size() int64 { return t.size }

func (t *SSTable) EstimatedKeys() int64 { return t.estimatedKeys }

// ReadMeter returns the table's read-rate meter, nil when the table
// has never been read.
func (t *SSTable) ReadMeter() *metrics.RateMeter { return t.readMeter.Load() }

// MarkRead records n reads against the table, creating the meter on
// first use. Safe for concurrent use by the read path.
func (t *SSTable) MarkRead(n int64) {
	m := t.readMeter.Load()
	if m == nil {
		fresh := metrics.NewRateMeter()
		if t.readMeter.CompareAndSwap(nil, fresh) {
			m = fresh
		} else {
			m = t.readMeter.Load()
		}
	}
	m.Mark(n)
}
