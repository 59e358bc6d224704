// Package datalog implements a fixed-stride, append-only, circular file
// store for timestamped accumulator records, the wrap-aware search that
// answers "record nearest timestamp T" in O(log n) disk reads (often O(1)
// on gapless regions), and the concurrency envelope that lets one writer
// and many bounded-wait readers share it safely.
//
// Records are encoded as fixed-width little-endian fields, whatever the
// host's byte order, and the file carries no header, no footer, no
// per-record checksum. Durability comes from flushing every append, not
// from a write-ahead log — on restart, Open recomputes all in-memory state
// from the file's own contents.
package datalog
