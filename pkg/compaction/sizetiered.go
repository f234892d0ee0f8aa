package compaction

import (
	"sort"

	"tierdb/pkg/metrics"
)

// Table is the read-only view of an sstable the strategy needs. The
// strategy borrows handles for the duration of one selection call and
// returns subsets of the same handles.
type Table interface {
	// Size is the on-disk size in bytes, fixed for the table's lifetime.
	Size() int64
	// EstimatedKeys is the estimated number of distinct keys, >= 1.
	EstimatedKeys() int64
	// ReadMeter returns the table's read-rate meter, or nil when no
	// read activity has been recorded for it yet.
	ReadMeter() *metrics.RateMeter
}

// SizedEntry pairs an arbitrary item with the size used to bucket it.
type SizedEntry[T any] struct {
	Item T
	Size int64
}

type bucket[T any] struct {
	items     []T
	totalSize int64
}

func (b *bucket[T]) mean() float64 {
	return float64(b.totalSize) / float64(len(b.items))
}

// Buckets partitions entries into groups of similar size in a single
// left-to-right pass. An entry joins the first bucket whose running
// mean m satisfies low*m <= size <= high*m; entries below minSize all
// collapse into one bucket no matter their mutual ratio. Buckets come
// out in the order they were opened, members in insertion order, so
// the result is deterministic for a given input order.
func Buckets[T any](entries []SizedEntry[T], bucketHigh, bucketLow float64, minSize int64) [][]T {
	var buckets []*bucket[T]

next:
	for _, entry := range entries {
		size := float64(entry.Size)
		for _, b := range buckets {
			mean := b.mean()
			fits := size >= bucketLow*mean && size <= bucketHigh*mean
			small := entry.Size < minSize && mean < float64(minSize)
			if fits || small {
				b.items = append(b.items, entry.Item)
				b.totalSize += entry.Size
				continue next
			}
		}

		buckets = append(buckets, &bucket[T]{
			items:     []T{entry.Item},
			totalSize: entry.Size,
		})
	}

	out := make([][]T, len(buckets))
	for i, b := range buckets {
		out[i] = b.items
	}
	return out
}

// hotness approximates read demand per stored key. Tables without a
// meter score zero, the coldest possible.
func hotness(t Table) float64 {
	m := t.ReadMeter()
	if m == nil {
		return 0
	}
	keys := t.EstimatedKeys()
	if keys < 1 {
		keys = 1
	}
	return m.TwoHourRate() / float64(keys)
}

func readRate(t Table) float64 {
	m := t.ReadMeter()
	if m == nil {
		return 0
	}
	return m.TwoHourRate()
}

type scoredTable struct {
	table Table
	score float64
}

// scoreTables snapshots each table's meter exactly once so the sort
// below never observes a moving rate.
func scoreTables(tables []Table, score func(Table) float64) []scoredTable {
	scored := make([]scoredTable, len(tables))
	for i, t := range tables {
		scored[i] = scoredTable{table: t, score: score(t)}
	}
	return scored
}

// trimToThresholdWithHotness enforces the merge fan-in bound on one
// bucket. Buckets within the bound pass through unchanged; oversized
// buckets lose their coldest members first. Returns the kept tables
// and the sum of their hotness scores.
func trimToThresholdWithHotness(tables []Table, maxThreshold int) ([]Table, float64) {
	scored := scoreTables(tables, hotness)

	if len(scored) > maxThreshold {
		// stable keeps original order among equally cold tables
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].score < scored[j].score
		})
		scored = scored[len(scored)-maxThreshold:]
	}

	kept := make([]Table, len(scored))
	var total float64
	for i, s := range scored {
		kept[i] = s.table
		total += s.score
	}
	return kept, total
}

// mostInterestingBucket trims every bucket to maxThreshold, drops the
// ones left with fewer than minThreshold tables, and returns the
// surviving bucket with the greatest aggregate hotness. Ties go to the
// first bucket seen. An empty result means there is nothing worth
// merging right now.
func mostInterestingBucket(buckets [][]Table, minThreshold, maxThreshold int) []Table {
	var (
		best        []Table
		bestHotness float64
		found       bool
	)

	for _, b := range buckets {
		kept, hot := trimToThresholdWithHotness(b, maxThreshold)
		if len(kept) < minThreshold {
			continue
		}
		if !found || hot > bestHotness {
			best = kept
			bestHotness = hot
			found = true
		}
	}

	return best
}

// FilterColdTables drops the coldest tables from compaction
// eligibility, bounded so the excluded tables together account for at
// most coldReadsToOmit of the total read rate. Bounding the excluded
// activity rather than the table count means a long tail of lukewarm
// tables cannot starve a few genuinely hot ones. With no rate data or
// a zero fraction the input comes back unchanged.
func FilterColdTables(tables []Table, coldReadsToOmit float64) []Table {
	if coldReadsToOmit == 0 {
		return tables
	}

	scored := scoreTables(tables, readRate)

	var totalRate float64
	for _, s := range scored {
		totalRate += s.score
	}
	if totalRate == 0 {
		return tables
	}

	// coldest first, absent meters at the front
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score < scored[j].score
	})

	budget := coldReadsToOmit * totalRate
	var excluded float64
	cutoff := 0
	for cutoff < len(scored) {
		if excluded+scored[cutoff].score > budget {
			break
		}
		excluded += scored[cutoff].score
		cutoff++
	}

	hot := make([]Table, 0, len(scored)-cutoff)
	for _, s := range scored[cutoff:] {
		hot = append(hot, s.table)
	}
	return hot
}
