package compaction

import (
	"errors"
	"fmt"
	"strconv"
)

// Option keys recognized by the size-tiered strategy. Anything else in
// the option map is passed through untouched so a layered strategy can
// validate its own keys.
const (
	BucketLowKey       = "bucket_low"
	BucketHighKey      = "bucket_high"
	MinSSTableSizeKey  = "min_sstable_size"
	ColdReadsToOmitKey = "cold_reads_to_omit"
)

const (
	DefaultBucketLow       = 0.5
	DefaultBucketHigh      = 1.5
	DefaultMinSSTableSize  = 50 << 20 // 50 MiB
	DefaultColdReadsToOmit = 0.05
)

// ErrInvalidOption is the sentinel matched by errors.Is for every
// option validation failure.
var ErrInvalidOption = errors.New("tierdb: invalid compaction option")

// ConfigError reports a recognized but unusable strategy option. It is
// raised at strategy construction or reconfiguration and should be
// surfaced to the operator; there is no safe substitute for a bad
// bound.
type ConfigError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("compaction option %s=%q: %s", e.Option, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidOption
}

// Options holds the validated size-tiered tunables. Immutable once
// parsed; the fan-in thresholds belong to the strategy, not here.
type Options struct {
	// BucketLow and BucketHigh bound how far a table's size may sit
	// from a bucket's running mean for the table to join it.
	BucketLow  float64
	BucketHigh float64
	// MinSSTableSize is the floor below which all tables land in a
	// single bucket regardless of their mutual size ratio.
	MinSSTableSize int64
	// ColdReadsToOmit is the fraction of the total read rate that may
	// be excluded from compaction as cold.
	ColdReadsToOmit float64
}

func DefaultOptions() Options {
	return Options{
		BucketLow:       DefaultBucketLow,
		BucketHigh:      DefaultBucketHigh,
		MinSSTableSize:  DefaultMinSSTableSize,
		ColdReadsToOmit: DefaultColdReadsToOmit,
	}
}

// ParseOptions validates the recognized entries of raw and returns the
// typed options together with the entries it does not recognize.
func ParseOptions(raw map[string]string) (Options, map[string]string, error) {
	opts := DefaultOptions()

	if v, ok := raw[BucketLowKey]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, nil, &ConfigError{Option: BucketLowKey, Value: v, Reason: "not a parsable float"}
		}
		if f <= 0 {
			return opts, nil, &ConfigError{Option: BucketLowKey, Value: v, Reason: "must be positive"}
		}
		opts.BucketLow = f
	}

	if v, ok := raw[BucketHighKey]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, nil, &ConfigError{Option: BucketHighKey, Value: v, Reason: "not a parsable float"}
		}
		if f <= 0 {
			return opts, nil, &ConfigError{Option: BucketHighKey, Value: v, Reason: "must be positive"}
		}
		opts.BucketHigh = f
	}

	if opts.BucketLow > opts.BucketHigh {
		return opts, nil, &ConfigError{
			Option: BucketLowKey,
			Value:  raw[BucketLowKey],
			Reason: fmt.Sprintf("must not be greater than %s (%v)", BucketHighKey, opts.BucketHigh),
		}
	}

	if v, ok := raw[MinSSTableSizeKey]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, nil, &ConfigError{Option: MinSSTableSizeKey, Value: v, Reason: "not a parsable integer"}
		}
		if n < 0 {
			return opts, nil, &ConfigError{Option: MinSSTableSizeKey, Value: v, Reason: "must be non-negative"}
		}
		opts.MinSSTableSize = n
	}

	if v, ok := raw[ColdReadsToOmitKey]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, nil, &ConfigError{Option: ColdReadsToOmitKey, Value: v, Reason: "not a parsable float"}
		}
		if f < 0 || f > 1 {
			return opts, nil, &ConfigError{Option: ColdReadsToOmitKey, Value: v, Reason: "must be between 0.0 and 1.0"}
		}
		opts.ColdReadsToOmit = f
	}

	unrecognized := make(map[string]string)
	for k, v := range raw {
		switch k {
		case BucketLowKey, BucketHighKey, MinSSTableSizeKey, ColdReadsToOmitKey:
		default:
			unrecognized[k] = v
		}
	}

	return opts, unrecognized, nil
}

// ValidateOptions checks raw and returns the entries this strategy does
// not recognize. Unrecognized keys are not an error at this layer.
func ValidateOptions(raw map[string]string) (map[string]string, error) {
	_, unrecognized, err := ParseOptions(raw)
	if err != nil {
		return nil, err
	}
	return unrecognized, nil
}
