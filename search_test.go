package datalog

import (
	"errors"
	"testing"
)

// fakeLog is an in-memory sequence of records addressable by revision,
// used to exercise interpolatingSearch and findWrapPos without a Store.
type fakeLog struct {
	recs []Record // indexed by rev - recs[0].Rev
}

func newFakeLog(firstRev uint32, firstTs uint32, interval uint32, n int) *fakeLog {
	f := &fakeLog{}
	for i := 0; i < n; i++ {
		f.recs = append(f.recs, Record{Rev: firstRev + uint32(i), Ts: firstTs + uint32(i)*interval})
	}
	return f
}

func (f *fakeLog) readByRev(rev uint32) (Record, error) {
	if len(f.recs) == 0 {
		return Record{}, errors.New("empty")
	}
	idx := int(rev - f.recs[0].Rev)
	if idx < 0 || idx >= len(f.recs) {
		return Record{}, errors.New("out of range")
	}
	return f.recs[idx], nil
}

func TestInterpolatingSearch(t *testing.T) {
	const interval = 5
	f := newFakeLog(100, 1000, interval, 50) // revs 100..149, ts 1000..1245

	tests := []struct {
		name    string
		ts      uint32
		wantRev uint32
		wantTs  uint32
	}{
		{"exact first", 1000, 100, 1000},
		{"exact last", 1245, 149, 1245},
		{"exact middle", 1100, 120, 1100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bracket{
				lowRev: f.recs[0].Rev, lowTs: f.recs[0].Ts,
				highRev: f.recs[len(f.recs)-1].Rev, highTs: f.recs[len(f.recs)-1].Ts,
			}
			rec, err := interpolatingSearch(b, interval, tt.ts, f.readByRev)
			if err != nil {
				t.Fatalf("interpolatingSearch error: %v", err)
			}
			if rec.Rev != tt.wantRev || rec.Ts != tt.wantTs {
				t.Errorf("got rev=%d ts=%d, want rev=%d ts=%d", rec.Rev, rec.Ts, tt.wantRev, tt.wantTs)
			}
		})
	}
}

func TestInterpolatingSearchSingleRevisionBracket(t *testing.T) {
	f := newFakeLog(5, 500, 5, 1)
	b := bracket{lowRev: 5, lowTs: 500, highRev: 5, highTs: 500}
	rec, err := interpolatingSearch(b, 5, 500, f.readByRev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Rev != 5 {
		t.Errorf("rev = %d, want 5", rec.Rev)
	}
}

func TestInterpolatingSearchPropagatesReadError(t *testing.T) {
	wantErr := errors.New("disk gone")
	readFn := func(rev uint32) (Record, error) { return Record{}, wantErr }
	b := bracket{lowRev: 0, lowTs: 0, highRev: 10, highTs: 100}
	_, err := interpolatingSearch(b, 10, 50, readFn)
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestFindWrapPos(t *testing.T) {
	// 10 records, 384 bytes each, wrapped: physical slots hold ts values
	// that decrease once, at the wrap boundary, from the write cursor.
	const recordSize = 384
	const n = 10

	// wrap boundary between physical slot 3 and slot 4: slots [4..9]
	// hold the oldest ts (400..900), slots [0..3] hold the newest (1000..1300).
	tsAt := func(pos int64) uint32 {
		slot := pos / recordSize
		if slot < 4 {
			return uint32(1000 + slot*100)
		}
		return uint32(400 + (slot-4)*100)
	}
	readKeyAt := func(pos int64) (Key, error) {
		return Key{Ts: tsAt(pos)}, nil
	}

	lowPos := int64(0)
	highPos := int64((n - 1) * recordSize)
	wrapPos, err := findWrapPos(lowPos, tsAt(lowPos), highPos, tsAt(highPos), recordSize, readKeyAt)
	if err != nil {
		t.Fatalf("findWrapPos error: %v", err)
	}
	wantPos := int64(4 * recordSize)
	if wrapPos != wantPos {
		t.Errorf("wrapPos = %d, want %d", wrapPos, wantPos)
	}
}

func TestFindWrapPosAdjacentSlots(t *testing.T) {
	const recordSize = 384
	readKeyAt := func(pos int64) (Key, error) {
		if pos == 0 {
			return Key{Ts: 100}, nil
		}
		return Key{Ts: 50}, nil
	}
	got, err := findWrapPos(0, 100, recordSize, 50, recordSize, readKeyAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != recordSize {
		t.Errorf("wrapPos = %d, want %d", got, recordSize)
	}
}
