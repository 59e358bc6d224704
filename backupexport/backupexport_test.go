package backupexport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auramon-energy/datalog"
	"github.com/auramon-energy/datalog/internal/archivecodec"
	"github.com/auramon-energy/datalog/internal/checksum"
)

func newTestStoreWithRecords(t *testing.T, n int) *datalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datalog.bin")
	s, err := datalog.Open(path, datalog.NewOptions(datalog.WithInterval(5)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ts := uint32(1000)
	for i := 0; i < n; i++ {
		rec := datalog.Record{Ts: ts, LogHours: float64(i) * 5.0 / 3600}
		rec.WattHrs[0] = float64(i)
		require.NoError(t, s.Write(rec))
		ts += 5
	}
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, codec := range []archivecodec.Type{archivecodec.Zstd, archivecodec.LZ4, archivecodec.None} {
		t.Run(codec.String(), func(t *testing.T) {
			s := newTestStoreWithRecords(t, 5)
			archive := filepath.Join(t.TempDir(), "export.dat")

			err := Export(s, archive, s.FirstRev(), s.LastRev(), nil, Options{Codec: codec})
			require.NoError(t, err)

			recs, err := Import(archive)
			require.NoError(t, err)
			require.Len(t, recs, 5)
			for i, rec := range recs {
				require.Equal(t, float64(i), rec.WattHrs[0])
			}
		})
	}
}

func TestExportDefaultsToZstdAndXXH3(t *testing.T) {
	s := newTestStoreWithRecords(t, 3)
	archive := filepath.Join(t.TempDir(), "export.dat")

	require.NoError(t, Export(s, archive, s.FirstRev(), s.LastRev(), nil))

	raw, err := os.ReadFile(archive)
	require.NoError(t, err)
	require.Equal(t, byte(archivecodec.Zstd), raw[4])
	require.Equal(t, byte(checksum.TypeXXH3), raw[5])
}

func TestExportImportRoundTripChecksumTypes(t *testing.T) {
	for _, typ := range []checksum.Type{checksum.TypeCRC32C, checksum.TypeXXHash64, checksum.TypeXXH3} {
		t.Run(typ.String(), func(t *testing.T) {
			s := newTestStoreWithRecords(t, 5)
			archive := filepath.Join(t.TempDir(), "export.dat")

			err := Export(s, archive, s.FirstRev(), s.LastRev(), nil, Options{Checksum: typ})
			require.NoError(t, err)

			recs, err := Import(archive)
			require.NoError(t, err)
			require.Len(t, recs, 5)
		})
	}
}

func TestExportPartialRange(t *testing.T) {
	s := newTestStoreWithRecords(t, 10)
	archive := filepath.Join(t.TempDir(), "export.dat")

	from, to := s.FirstRev()+2, s.FirstRev()+5
	require.NoError(t, Export(s, archive, from, to, nil))

	recs, err := Import(archive)
	require.NoError(t, err)
	require.Len(t, recs, int(to-from+1))
	require.Equal(t, from, recs[0].Rev)
	require.Equal(t, to, recs[len(recs)-1].Rev)
}

func TestImportRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, []byte("not an export file at all"), 0o644))

	_, err := Import(path)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestImportDetectsChecksumMismatch(t *testing.T) {
	s := newTestStoreWithRecords(t, 3)
	archive := filepath.Join(t.TempDir(), "export.dat")
	require.NoError(t, Export(s, archive, s.FirstRev(), s.LastRev(), nil))

	raw, err := os.ReadFile(archive)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF // flip a bit in the trailing checksum
	require.NoError(t, os.WriteFile(archive, raw, 0o644))

	_, err = Import(archive)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestExportRejectsInvertedRange(t *testing.T) {
	s := newTestStoreWithRecords(t, 3)
	archive := filepath.Join(t.TempDir(), "export.dat")
	err := Export(s, archive, 5, 1, nil)
	require.Error(t, err)
}
