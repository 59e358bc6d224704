package datalog

// bracket holds the two keys an interpolating search narrows between. It
// replaces the original's recursive `search(ts, rec, lowTS, lowRev,
// highTS, highRev)` with an explicit value threaded through an iterative
// loop, bounding stack depth on pathological inputs.
type bracket struct {
	lowRev, lowTs   uint32
	highRev, highTs uint32
}

// readByRevFunc reads the record stored at the given revision. It is
// implemented by Store.readRevLocked; kept as a function type here so the
// search algorithm has no dependency on the store's disk/lock machinery
// and can be exercised with an in-memory fake.
type readByRevFunc func(rev uint32) (Record, error)

// interpolatingSearch locates the record nearest ts within b, in the
// IoTaWatt-style "interpolate then narrow" style: it exploits a
// near-gapless revision-to-timestamp mapping to guess an exact or
// near-exact revision from each end of the bracket, and only falls back
// to classic bisection when neither end narrows progress.
//
// Preconditions: b.lowTs <= ts <= b.highTs, b.lowRev <= b.highRev, and
// interval > 0. Terminates in O(log(highRev-lowRev)) disk reads.
func interpolatingSearch(b bracket, interval uint32, ts uint32, readByRev readByRevFunc) (Record, error) {
	for {
		if b.lowRev == b.highRev {
			return readByRev(b.lowRev)
		}

		// From the high end: at least highRev - (highTs-ts)/interval.
		floorRev := b.lowRev
		if highGap := (b.highTs - ts) / interval; b.highRev-highGap > floorRev {
			floorRev = b.highRev - highGap
		}
		// From the low end: at most lowRev + (ts-lowTs)/interval.
		ceilRev := b.highRev
		if lowGap := (ts - b.lowTs) / interval; b.lowRev+lowGap < ceilRev {
			ceilRev = b.lowRev + lowGap
		}

		if ceilRev < b.highRev || floorRev == ceilRev {
			rec, err := readByRev(ceilRev)
			if err != nil {
				return Record{}, err
			}
			if rec.Ts == ts {
				return rec, nil
			}
			b.highRev, b.highTs = rec.Rev, rec.Ts
			continue
		}
		if floorRev > b.lowRev {
			rec, err := readByRev(floorRev)
			if err != nil {
				return Record{}, err
			}
			if rec.Ts == ts {
				return rec, nil
			}
			b.lowRev, b.lowTs = rec.Rev, rec.Ts
			continue
		}

		// Neither end narrowed; fall back to classic bisection.
		if b.highRev-b.lowRev <= 1 {
			return readByRev(b.lowRev)
		}
		mid := b.lowRev + (b.highRev-b.lowRev)/2
		rec, err := readByRev(mid)
		if err != nil {
			return Record{}, err
		}
		if rec.Ts == ts {
			return rec, nil
		}
		if rec.Ts < ts {
			b.lowRev, b.lowTs = rec.Rev, rec.Ts
		} else {
			b.highRev, b.highTs = rec.Rev, rec.Ts
		}
	}
}

// readKeyAtFunc reads the 8-byte key stored at a physical byte offset.
type readKeyAtFunc func(pos int64) (Key, error)

// findWrapPos bisects the physical file by byte offset to find the unique
// slot boundary where timestamps decrease, given lowTs > highTs. Offsets
// are always rounded down to a record boundary. Returns highPos once the
// bracket has narrowed to exactly one record.
func findWrapPos(lowPos int64, lowTs uint32, highPos int64, highTs uint32, recordSize int64, readKeyAt readKeyAtFunc) (int64, error) {
	for {
		if highPos-lowPos == recordSize {
			return highPos, nil
		}
		midPos := (lowPos + highPos) / 2
		midPos -= midPos % recordSize

		midKey, err := readKeyAt(midPos)
		if err != nil {
			return 0, err
		}
		if midKey.Ts > lowTs {
			lowPos, lowTs = midPos, midKey.Ts
			continue
		}
		highPos, highTs = midPos, midKey.Ts
	}
}
