// Package backupexport writes a compressed, checksummed snapshot of a
// contiguous revision range of the circular log to a single file, for
// offboard backup or transfer to a companion service. It is a
// supplemental feature absent from the original firmware (which has no
// flash budget for it) but natural for a Go deployment with a
// filesystem to spare.
package backupexport

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/auramon-energy/datalog"
	"github.com/auramon-energy/datalog/internal/archivecodec"
	"github.com/auramon-energy/datalog/internal/checksum"
	"github.com/auramon-energy/datalog/internal/encoding"
	"github.com/auramon-energy/datalog/internal/logging"
	"github.com/auramon-energy/datalog/internal/testutil"
)

// magic identifies the export file format in its first four bytes. The
// header is magic + 1 codec byte + 1 checksum-type byte + 4-byte
// little-endian uncompressed length, followed by the compressed body
// and a 4-byte checksum trailer computed per the header's checksum type.
var magic = [4]byte{'D', 'L', 'E', '1'}

const headerSize = 4 + 1 + 1 + 4
const trailerSize = 4

// ErrChecksumMismatch is returned by Import when the trailing checksum
// does not match the decompressed record stream.
var ErrChecksumMismatch = fmt.Errorf("backupexport: checksum mismatch")

// ErrBadMagic is returned by Import when path does not start with the
// export format's magic bytes.
var ErrBadMagic = fmt.Errorf("backupexport: not an export file")

// Options configures Export. The zero value compresses with zstd, the
// denser of the two codecs, matching the teacher's default SST block
// codec, and checksums the uncompressed stream with XXH3, the teacher's
// default block checksum.
type Options struct {
	Codec    archivecodec.Type
	Checksum checksum.Type
}

func (o Options) withDefaults() Options {
	if o.Codec == 0 {
		o.Codec = archivecodec.Zstd
	}
	if o.Checksum == 0 {
		o.Checksum = checksum.TypeXXH3
	}
	return o
}

// Export writes every record in [fromRev, toRev] from store to a new file
// at path, compressed per opts.Codec and trailed by a checksum (per
// opts.Checksum) of the uncompressed record stream. The file is
// assembled in memory, then written via an atomic rename so a reader
// never observes a partial export.
func Export(store *datalog.Store, path string, fromRev, toRev uint32, logger logging.Logger, opts ...Options) error {
	logger = logging.OrDefault(logger)
	if fromRev > toRev {
		return fmt.Errorf("backupexport: fromRev %d > toRev %d", fromRev, toRev)
	}
	opt := Options{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	opt = opt.withDefaults()

	testutil.MaybeKill(testutil.KPBackupExport0)

	var raw bytes.Buffer
	n := 0
	buf := make([]byte, datalog.RecordSize)
	for rev := fromRev; ; rev++ {
		rec, err := store.ReadRev(rev, 0)
		if err != nil {
			return fmt.Errorf("backupexport: reading rev %d: %w", rev, err)
		}
		rec.Encode(buf)
		raw.Write(buf)
		n++
		if rev == toRev {
			break
		}
	}

	usedCodec, compressed, err := archivecodec.Compress(opt.Codec, raw.Bytes())
	if err != nil {
		return fmt.Errorf("backupexport: %w", err)
	}

	var out bytes.Buffer
	out.Write(magic[:])
	out.WriteByte(byte(usedCodec))
	out.WriteByte(byte(opt.Checksum))
	out.Write(encoding.AppendFixed32(nil, uint32(raw.Len())))
	out.Write(compressed)
	out.Write(encoding.AppendFixed32(nil, checksum.ComputeChecksum(opt.Checksum, raw.Bytes(), byte(usedCodec))))

	if err := atomic.WriteFile(path, &out); err != nil {
		return fmt.Errorf("backupexport: %w", err)
	}

	testutil.MaybeKill(testutil.KPBackupExport1)
	logger.Infof("%sexported %d records [%d,%d] to %s using %s/%s", logging.NSBackup, n, fromRev, toRev, path, usedCodec, opt.Checksum)
	return nil
}

// Import reads back every record written by Export, verifying the
// trailing checksum before returning any records.
func Import(path string) ([]datalog.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backupexport: %w", err)
	}
	if len(raw) < headerSize+trailerSize || [4]byte(raw[:4]) != magic {
		return nil, ErrBadMagic
	}
	codec := archivecodec.Type(raw[4])
	checksumType := checksum.Type(raw[5])
	uncompressedSize := encoding.DecodeFixed32(raw[6:10])
	compressed, sum := raw[headerSize:len(raw)-trailerSize], raw[len(raw)-trailerSize:]

	decoded, err := archivecodec.Decompress(codec, compressed, int(uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("backupexport: %w", err)
	}
	if encoding.DecodeFixed32(sum) != checksum.ComputeChecksum(checksumType, decoded, byte(codec)) {
		return nil, ErrChecksumMismatch
	}
	if len(decoded)%datalog.RecordSize != 0 {
		return nil, fmt.Errorf("backupexport: truncated record stream (%d bytes)", len(decoded))
	}

	recs := make([]datalog.Record, 0, len(decoded)/datalog.RecordSize)
	for off := 0; off < len(decoded); off += datalog.RecordSize {
		recs = append(recs, datalog.DecodeRecord(decoded[off:off+datalog.RecordSize]))
	}
	return recs, nil
}
