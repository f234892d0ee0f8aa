// Package compaction implements the size-tiered compaction strategy:
// it groups tables of similar size into buckets, scores each bucket by
// how hot its tables are, and picks the group most worth merging while
// respecting the merge fan-in bounds and skipping tables too cold to
// be worth the I/O.
package compaction
