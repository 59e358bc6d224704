// XXH3 checksum helpers for archive segments, delegating the actual hash
// computation to the zeebo/xxh3 implementation of the xxHash spec
// (https://github.com/Cyan4973/xxHash/blob/dev/doc/xxhash_spec.md).
//
// This is the default checksum for backupexport archive segments: fast
// enough to run on every exported record batch without becoming the
// bottleneck a full cryptographic hash would.
package checksum

import "github.com/zeebo/xxh3"

// XXH3_64bits computes the 64-bit XXH3 hash of data.
func XXH3_64bits(data []byte) uint64 {
	return xxh3.Hash(data)
}

// XXH3ChecksumWithLastByte computes XXH3 checksum with a separate last byte.
// This is used when the last byte (compression type) is not in the data buffer.
func XXH3ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	// Compute XXH3 over all data
	h := XXH3_64bits(data)
	v := uint32(h) // Lower 32 bits

	// Modify checksum for last byte
	const kRandomPrime = 0x6b9083d9
	return v ^ (uint32(lastByte) * kRandomPrime)
}
