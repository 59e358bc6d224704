package datalog

import (
	"math"

	"github.com/auramon-energy/datalog/internal/encoding"
)

// MaxDevices is the fixed maximum number of per-device accumulator slots
// carried by every record, regardless of how many devices are actually
// configured.
const MaxDevices = 15

// RecordSize is the fixed on-disk byte stride of a Record. Every slot in
// the circular file is exactly this many bytes; no padding, no per-record
// header.
const RecordSize = 4 + 4 + 8 + 8 + 8*MaxDevices*3

// Record is the fixed-stride payload stored once per log interval. Every
// field is a cumulative integral, never an instantaneous reading — rate
// quantities are derived by differencing two records and dividing by the
// difference in LogHours.
type Record struct {
	Rev      uint32
	Ts       uint32
	LogHours float64
	HzHrs    float64
	VoltHrs  [MaxDevices]float64
	WattHrs  [MaxDevices]float64
	VaHrs    [MaxDevices]float64
}

// Key is the leading 8 bytes of a record: the pair that identifies it.
// Rev is the primary key; Ts is carried alongside so the wrap-point search
// in Open can compare timestamps without decoding a whole record.
type Key struct {
	Rev uint32
	Ts  uint32
}

// Clone returns a deep copy. Records have no pointer fields, so this is
// a plain value copy, but the method exists so callers of the single-owner
// in-progress record never need to know that.
func (r Record) Clone() Record {
	return r
}

// IsZero reports whether r is the zero record (never written).
func (r Record) IsZero() bool {
	return r == Record{}
}

// Key returns the record's (Rev, Ts) key.
func (r Record) Key() Key {
	return Key{Rev: r.Rev, Ts: r.Ts}
}

// Encode writes r into dst in exactly RecordSize bytes, for callers (such
// as backupexport) that need the wire form directly.
// REQUIRES: len(dst) >= RecordSize.
func (r Record) Encode(dst []byte) {
	encodeRecord(dst, r)
}

// encodeRecord writes r into dst in exactly RecordSize bytes.
// REQUIRES: len(dst) >= RecordSize.
func encodeRecord(dst []byte, r Record) {
	encoding.EncodeFixed32(dst[0:4], r.Rev)
	encoding.EncodeFixed32(dst[4:8], r.Ts)
	encoding.EncodeFixed64(dst[8:16], math.Float64bits(r.LogHours))
	encoding.EncodeFixed64(dst[16:24], math.Float64bits(r.HzHrs))
	off := 24
	for _, arr := range [][MaxDevices]float64{r.VoltHrs, r.WattHrs, r.VaHrs} {
		for _, v := range arr {
			encoding.EncodeFixed64(dst[off:off+8], math.Float64bits(v))
			off += 8
		}
	}
}

// DecodeRecord reads a Record from exactly RecordSize bytes of src, for
// callers (such as backupexport) that need to parse the wire form
// directly.
// REQUIRES: len(src) >= RecordSize.
func DecodeRecord(src []byte) Record {
	return decodeRecord(src)
}

// decodeRecord reads a Record from exactly RecordSize bytes of src.
// REQUIRES: len(src) >= RecordSize.
func decodeRecord(src []byte) Record {
	var r Record
	r.Rev = encoding.DecodeFixed32(src[0:4])
	r.Ts = encoding.DecodeFixed32(src[4:8])
	r.LogHours = math.Float64frombits(encoding.DecodeFixed64(src[8:16]))
	r.HzHrs = math.Float64frombits(encoding.DecodeFixed64(src[16:24]))
	off := 24
	for _, arr := range []*[MaxDevices]float64{&r.VoltHrs, &r.WattHrs, &r.VaHrs} {
		for i := range arr {
			arr[i] = math.Float64frombits(encoding.DecodeFixed64(src[off : off+8]))
			off += 8
		}
	}
	return r
}

// decodeKey reads only the 8-byte key from the front of a record slot,
// without decoding the remaining accumulators.
// REQUIRES: len(src) >= 8.
func decodeKey(src []byte) Key {
	return Key{
		Rev: encoding.DecodeFixed32(src[0:4]),
		Ts:  encoding.DecodeFixed32(src[4:8]),
	}
}
