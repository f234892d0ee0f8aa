package compaction

// Fan-in bounds applied when the caller passes zero values.
const (
	DefaultMinThreshold = 4
	DefaultMaxThreshold = 32
)

// SizeTieredStrategy picks the set of tables most worth merging. It is
// a pure function of the snapshot it is handed: no internal state
// changes during selection, so one strategy value may be shared by
// concurrent evaluation goroutines.
type SizeTieredStrategy struct {
	opts         Options
	minThreshold int
	maxThreshold int
}

// NewSizeTieredStrategy parses and validates raw strategy options and
// returns the strategy plus the option entries it did not recognize.
func NewSizeTieredStrategy(minThreshold, maxThreshold int, raw map[string]string) (*SizeTieredStrategy, map[string]string, error) {
	opts, unrecognized, err := ParseOptions(raw)
	if err != nil {
		return nil, nil, err
	}

	if minThreshold <= 0 {
		minThreshold = DefaultMinThreshold
	}
	if maxThreshold <= 0 {
		maxThreshold = DefaultMaxThreshold
	}
	if maxThreshold < minThreshold {
		maxThreshold = minThreshold
	}

	return &SizeTieredStrategy{
		opts:         opts,
		minThreshold: minThreshold,
		maxThreshold: maxThreshold,
	}, unrecognized, nil
}

func (s *SizeTieredStrategy) Options() Options { return s.opts }

func (s *SizeTieredStrategy) MinThreshold() int { return s.minThreshold }

func (s *SizeTieredStrategy) MaxThreshold() int { return s.maxThreshold }

// SelectCandidates returns the tables to hand to the merge executor,
// or an empty slice when no bucket is worth merging. The caller owns
// the snapshot and must already have excluded tables claimed by
// running compactions.
func (s *SizeTieredStrategy) SelectCandidates(tables []Table) []Table {
	hot := FilterColdTables(tables, s.opts.ColdReadsToOmit)

	entries := make([]SizedEntry[Table], len(hot))
	for i, t := range hot {
		entries[i] = SizedEntry[Table]{Item: t, Size: t.Size()}
	}

	buckets := Buckets(entries, s.opts.BucketHigh, s.opts.BucketLow, s.opts.MinSSTableSize)
	return mostInterestingBucket(buckets, s.minThreshold, s.maxThreshold)
}
