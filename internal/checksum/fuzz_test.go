package checksum

import (
	"testing"
)

// Additional fuzz tests for checksum package.
// Note: FuzzCRC32CRoundtrip and FuzzCRC32CExtend are in crc32c_test.go

// FuzzXXH3ChecksumWithLastByte fuzzes the XXH3 checksum implementation.
func FuzzXXH3ChecksumWithLastByte(f *testing.F) {
	f.Add([]byte{}, byte(0))
	f.Add([]byte{0}, byte(1))
	f.Add([]byte("hello world"), byte(2))
	f.Add(make([]byte, 1024), byte(3))

	f.Fuzz(func(t *testing.T, data []byte, lastByte byte) {
		sum := XXH3ChecksumWithLastByte(data, lastByte)

		// Verify it's consistent
		sum2 := XXH3ChecksumWithLastByte(data, lastByte)
		if sum != sum2 {
			t.Errorf("XXH3ChecksumWithLastByte not consistent: %x != %x", sum, sum2)
		}
	})
}

// FuzzXXH3Hash64 fuzzes the full 64-bit XXH3 hash.
func FuzzXXH3Hash64(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte("hello world"))
	f.Add(make([]byte, 1024))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Compute hash
		hash := XXH3_64bits(data)

		// Verify it's consistent
		hash2 := XXH3_64bits(data)
		if hash != hash2 {
			t.Errorf("XXH3_64bits not consistent: %x != %x", hash, hash2)
		}
	})
}

// FuzzComputeChecksumTypes fuzzes the generic ComputeChecksum function.
func FuzzComputeChecksumTypes(f *testing.F) {
	f.Add([]byte{}, byte(0), byte(TypeCRC32C))
	f.Add([]byte("hello"), byte(0x42), byte(TypeXXH3))
	f.Add([]byte("hello"), byte(0x42), byte(TypeXXHash64))

	f.Fuzz(func(t *testing.T, data []byte, lastByte byte, checksumType byte) {
		ct := Type(checksumType)

		// Only test valid types
		switch ct {
		case TypeCRC32C, TypeXXHash64, TypeXXH3:
			sum := ComputeChecksum(ct, data, lastByte)

			// Verify consistency
			sum2 := ComputeChecksum(ct, data, lastByte)
			if sum != sum2 {
				t.Errorf("ComputeChecksum not consistent: %x != %x", sum, sum2)
			}
		default:
			// Skip invalid types
		}
	})
}

// FuzzMaskDeterminism fuzzes the CRC32C mask function.
func FuzzMaskDeterminism(f *testing.F) {
	f.Add([]byte{0})
	f.Add([]byte{1, 2, 3, 4})
	f.Add([]byte("test data for CRC"))

	f.Fuzz(func(t *testing.T, data []byte) {
		crc := Extend(0, data)
		if Mask(crc) != Mask(crc) {
			t.Errorf("Mask not deterministic for crc=%x", crc)
		}
	})
}
