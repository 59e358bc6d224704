// Package archivecodec selects and applies the compression codec used by a
// backupexport archive segment. It is the backup-archive counterpart of the
// block compression dispatcher RocksDB-style engines keep for SST blocks,
// trimmed to the two codecs an export archive actually chooses between:
// zstd for ratio, LZ4 for speed on constrained hosts doing frequent exports.
package archivecodec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the codec a single archive was compressed with. It is
// stored in the archive header as the byte right after the 4-byte magic.
type Type uint8

const (
	// None stores the record stream uncompressed. It is non-zero so that a
	// zero Type means "unset" and backupexport can default it to Zstd.
	None Type = 0x3
	// LZ4 uses raw LZ4 block compression, fast with a modest ratio.
	LZ4 Type = 0x1
	// Zstd uses Zstandard, the default: slower than LZ4 but denser.
	Zstd Type = 0x2
)

// String returns the codec's human-readable name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Compress compresses data with the given codec, returning the codec
// actually used. This is usually t, except that LZ4's raw block format
// declines to compress incompressible input (CompressBlock returns n==0),
// in which case Compress falls back to None and reports that honestly so
// the caller never records a codec byte that doesn't match the bytes.
func Compress(t Type, data []byte) (Type, []byte, error) {
	switch t {
	case None:
		return None, data, nil
	case LZ4:
		out, err := compressLZ4(data)
		if err != nil {
			return t, nil, err
		}
		if out == nil {
			return None, data, nil
		}
		return LZ4, out, nil
	case Zstd:
		out, err := compressZstd(data)
		return Zstd, out, err
	default:
		return t, nil, fmt.Errorf("archivecodec: unsupported codec %s", t)
	}
}

// Decompress decompresses data with the given codec. uncompressedSize must
// be the exact original length for LZ4, whose raw block format carries no
// size of its own; it is ignored by the other codecs.
func Decompress(t Type, data []byte, uncompressedSize int) ([]byte, error) {
	switch t {
	case None:
		return data, nil
	case LZ4:
		return decompressLZ4(data, uncompressedSize)
	case Zstd:
		return decompressZstd(data)
	default:
		return nil, fmt.Errorf("archivecodec: unsupported codec %s", t)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(data, dst, ht[:])
	if err != nil {
		return nil, fmt.Errorf("archivecodec: lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible input; caller falls back to None.
		return nil, nil
	}
	return dst[:n], nil
}

func decompressLZ4(data []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("archivecodec: lz4 decompress: %w", err)
	}
	return dst[:n], nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("archivecodec: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("archivecodec: zstd decoder: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
