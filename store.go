package datalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/auramon-energy/datalog/internal/cache"
	"github.com/auramon-energy/datalog/internal/logging"
	"github.com/auramon-energy/datalog/internal/testutil"
)

// timeoutMutex is a mutex whose acquisition can be bounded by a caller
// timeout, used for the log mutex so Read never blocks a caller longer
// than it asked to wait. Write always acquires it unconditionally.
type timeoutMutex struct {
	ch chan struct{}
}

func newTimeoutMutex() *timeoutMutex {
	m := &timeoutMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Lock acquires the mutex unconditionally.
func (m *timeoutMutex) Lock() { <-m.ch }

// Unlock releases the mutex.
func (m *timeoutMutex) Unlock() { m.ch <- struct{}{} }

// TryLockTimeout attempts to acquire the mutex within d, returning false
// if d elapses first. d <= 0 means try once without waiting.
func (m *timeoutMutex) TryLockTimeout(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-m.ch:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ch:
		return true
	case <-t.C:
		return false
	}
}

// Store is the append-only, fixed-stride, circular file of timestamped
// accumulator records. The log mutex (mu) guards all in-memory state; the
// disk mutex (sdMu) guards reads and writes of the underlying file.
// mu is always acquired before sdMu, never the reverse.
type Store struct {
	mu   *timeoutMutex
	sdMu *sync.Mutex

	opts Options
	path string
	file *os.File

	fileSize    int64
	maxFileSize int64
	entries     uint32
	first       Key
	last        Key
	wrapPos     int64

	tail *cache.TailCache[Record]
	read *cache.ReadCache

	metrics *Metrics
	logger  logging.Logger
}

// Open opens or creates the circular file at path and recovers its
// in-memory state, per the reference "begin" procedure: read the file
// size, decode first/last from the boundary slots, detect a wrapped file
// by first.Ts > last.Ts and locate the wrap point, then verify invariant
// 3 (contiguous revisions).
func Open(path string, opts Options) (s *Store, err error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	st := &Store{
		mu:          newTimeoutMutex(),
		sdMu:        &sync.Mutex{},
		opts:        opts,
		path:        path,
		file:        file,
		fileSize:    info.Size(),
		maxFileSize: opts.maxFileSize(),
		tail:        cache.NewTailCache[Record](opts.TailCacheSize),
		read:        cache.NewReadCache(opts.ReadCacheSize),
		metrics:     newMetrics(opts.Registerer),
		logger:      opts.Logger,
	}
	if st.maxFileSize < st.fileSize {
		st.maxFileSize = st.fileSize
	}

	if st.fileSize > 0 {
		st.entries = uint32(st.fileSize / int64(RecordSize))

		first, err := st.readKeyAt(0)
		if err != nil {
			return nil, err
		}
		last, err := st.readKeyAt(st.fileSize - int64(RecordSize))
		if err != nil {
			return nil, err
		}
		st.first, st.last = first, last

		if st.first.Ts > st.last.Ts {
			wrapPos, err := findWrapPos(0, st.first.Ts, st.fileSize-int64(RecordSize), st.last.Ts, int64(RecordSize), st.readKeyAt)
			if err != nil {
				return nil, err
			}
			st.wrapPos = wrapPos
			first, err := st.readKeyAt(st.wrapPos)
			if err != nil {
				return nil, err
			}
			var lastPos int64
			if st.wrapPos == 0 {
				lastPos = st.fileSize - int64(RecordSize)
			} else {
				lastPos = st.wrapPos - int64(RecordSize)
			}
			last, err := st.readKeyAt(lastPos)
			if err != nil {
				return nil, err
			}
			st.first, st.last = first, last
		}

		if st.last.Rev-st.first.Rev+1 != st.entries {
			st.logger.Errorf("%scorruption detected in %s: first.rev=%d last.rev=%d entries=%d", logging.NSStore, path, st.first.Rev, st.last.Rev, st.entries)
			file.Close()
			if rmErr := os.Remove(path); rmErr != nil {
				st.logger.Warnf("%sfailed to remove corrupt log %s: %v", logging.NSStore, path, rmErr)
			}
			return nil, ErrCorruptionDetected
		}

		st.logger.Infof("%sopened %s with %d entries (first.rev=%d last.rev=%d)", logging.NSStore, path, st.entries, st.first.Rev, st.last.Rev)
	}

	return st, nil
}

// Close releases the file descriptor owned by the store for its lifetime.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Entries returns the current record count.
func (s *Store) Entries() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

// Interval returns the seconds between consecutive records.
func (s *Store) Interval() uint32 { return s.opts.Interval }

// Metrics returns the store's metrics, shared with the integrator that
// writes to it so collection counters and storage counters are registered
// against the same Registerer.
func (s *Store) Metrics() *Metrics { return s.metrics }

// FirstRev returns the revision of the oldest retained record.
func (s *Store) FirstRev() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first.Rev
}

// FirstTs returns the timestamp of the oldest retained record.
func (s *Store) FirstTs() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first.Ts
}

// LastRev returns the revision of the newest record.
func (s *Store) LastRev() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Rev
}

// LastTs returns the timestamp of the newest record.
func (s *Store) LastTs() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Ts
}

// StoreStats is a point-in-time snapshot of the store's in-memory state,
// consumed by cmd/datalogdump's stats command.
type StoreStats struct {
	Entries     uint32
	FileSize    int64
	MaxFileSize int64
	WrapPos     int64
	First       Key
	Last        Key
}

// Stats returns a snapshot of the store's size and position state.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{
		Entries:     s.entries,
		FileSize:    s.fileSize,
		MaxFileSize: s.maxFileSize,
		WrapPos:     s.wrapPos,
		First:       s.first,
		Last:        s.last,
	}
}

// Write appends rec to the log, assigning it the next revision. rec.Ts
// must be strictly greater than the current last timestamp. Write
// acquires the log mutex unconditionally, per the concurrency envelope:
// it is never subject to the caller timeout that bounds Read.
func (s *Store) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrNotOpen
	}
	if rec.Ts <= s.last.Ts {
		return ErrNonIncreasingTimestamp
	}

	testutil.MaybeKill(testutil.KPStoreWrite0)

	rec.Rev = s.last.Rev + 1
	s.last = Key{Rev: rec.Rev, Ts: rec.Ts}
	s.tail.Insert(rec.Ts, rec.Clone())

	buf := make([]byte, RecordSize)
	encodeRecord(buf, rec)

	if s.wrapPos != 0 || s.fileSize >= s.maxFileSize {
		if err := s.writeWrapped(buf); err != nil {
			return err
		}
	} else {
		if err := s.writeGrowing(buf, rec.Ts); err != nil {
			return err
		}
	}

	testutil.MaybeKill(testutil.KPStoreWrite1)
	s.metrics.ioTotal.Inc()
	return nil
}

// writeWrapped performs the overwrite-oldest-slot path: seek to wrapPos,
// write, flush, advance wrapPos, and re-derive first from the new
// boundary. Neither fileSize nor entries changes.
func (s *Store) writeWrapped(buf []byte) error {
	testutil.MaybeKill(testutil.KPStoreWrap0)

	s.sdMu.Lock()
	defer s.sdMu.Unlock()

	if _, err := s.file.WriteAt(buf, s.wrapPos); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	s.wrapPos = (s.wrapPos + int64(RecordSize)) % s.fileSize

	keyBuf := make([]byte, 8)
	if _, err := s.file.ReadAt(keyBuf, s.wrapPos); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	s.first = decodeKey(keyBuf)

	testutil.MaybeKill(testutil.KPStoreWrap1)
	return nil
}

// writeGrowing performs the append-at-end path while the file is still
// below maxFileSize.
func (s *Store) writeGrowing(buf []byte, ts uint32) error {
	s.sdMu.Lock()
	defer s.sdMu.Unlock()

	if _, err := s.file.WriteAt(buf, s.fileSize); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	testutil.MaybeKill(testutil.KPStoreSync0)
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	testutil.MaybeKill(testutil.KPStoreSync1)

	wasEmpty := s.entries == 0
	s.fileSize += int64(RecordSize)
	s.entries++
	if wasEmpty {
		s.first = Key{Rev: s.last.Rev, Ts: ts}
	}
	return nil
}

// Read returns the record whose logical timestamp is closest to ts,
// aligned down to the log interval, waiting up to timeout to acquire the
// log mutex. A zero or negative timeout means try once without waiting.
func (s *Store) Read(ts uint32, timeout time.Duration) Outcome {
	ts = alignDown(ts, s.opts.Interval)

	if !s.mu.TryLockTimeout(timeout) {
		return errOutcome(ErrMutexTimeout)
	}
	defer s.mu.Unlock()

	if s.file == nil {
		return errOutcome(ErrNotOpen)
	}
	if s.entries == 0 {
		return errOutcome(ErrNoEntries)
	}

	if ts < s.first.Ts {
		rec, err := s.readRevLocked(s.first.Rev)
		if err != nil {
			return errOutcome(err)
		}
		return beforeRange(rec, ts)
	}
	if ts >= s.last.Ts {
		rec, err := s.readRevLocked(s.last.Rev)
		if err != nil {
			return errOutcome(err)
		}
		if ts == s.last.Ts {
			return found(rec)
		}
		return afterRange(rec, ts)
	}

	// Tail-cache: only consulted when ts is within the cache's window of
	// history, per spec.md's "consults it only when..." gating — the
	// cache itself is a dumb ring, the window check lives here.
	window := int64(s.tail.Capacity()) * int64(s.opts.Interval)
	if int64(s.last.Ts)-int64(ts) <= window {
		if rec, ok := s.tail.Lookup(ts); ok {
			s.metrics.cacheHitTotal.Inc()
			return found(rec)
		}
	}

	b := bracket{
		lowRev: s.first.Rev, lowTs: s.first.Ts,
		highRev: s.last.Rev, highTs: s.last.Ts,
	}

	// Read-cache: exact hit, or a tighter bracket to start the search from.
	newLow, newHigh, exact, hit := s.read.Tighten(ts, cache.Key{Rev: b.lowRev, Ts: b.lowTs}, cache.Key{Rev: b.highRev, Ts: b.highTs})
	if hit {
		s.metrics.cacheHitTotal.Inc()
		rec, err := s.readRevLocked(exact.Rev)
		if err != nil {
			return errOutcome(err)
		}
		rec.Ts = ts
		return found(rec)
	}
	b.lowRev, b.lowTs = newLow.Rev, newLow.Ts
	b.highRev, b.highTs = newHigh.Rev, newHigh.Ts

	rec, err := interpolatingSearch(b, s.opts.Interval, ts, s.readRevLocked)
	if err != nil {
		return errOutcome(err)
	}
	rec.Ts = ts
	return found(rec)
}

// ReadRev reads the record at an exact revision, bypassing timestamp
// alignment and the before/after-range outcomes of Read. It exists for
// callers that need to walk revisions directly, such as backupexport.
func (s *Store) ReadRev(rev uint32, timeout time.Duration) (Record, error) {
	if !s.mu.TryLockTimeout(timeout) {
		return Record{}, ErrMutexTimeout
	}
	defer s.mu.Unlock()

	if s.file == nil {
		return Record{}, ErrNotOpen
	}
	return s.readRevLocked(rev)
}

// readRevLocked reads the record at revision rev via its O(1) physical
// offset. The caller must hold mu.
func (s *Store) readRevLocked(rev uint32) (Record, error) {
	if rev < s.first.Rev || rev > s.last.Rev {
		return Record{}, fmt.Errorf("%w: revision %d out of range [%d,%d]", ErrStorageIO, rev, s.first.Rev, s.last.Rev)
	}
	pos := (int64(rev-s.first.Rev)*int64(RecordSize) + s.wrapPos) % s.fileSize

	s.sdMu.Lock()
	buf := make([]byte, RecordSize)
	_, err := s.file.ReadAt(buf, pos)
	s.sdMu.Unlock()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	rec := decodeRecord(buf)
	s.read.Insert(cache.Key{Rev: rec.Rev, Ts: rec.Ts})
	s.metrics.ioTotal.Inc()
	return rec, nil
}

// readKeyAt reads only the 8-byte key at a physical byte offset, used
// during Open to discover first/last and the wrap point without holding
// mu (construction is still single-threaded at that point).
func (s *Store) readKeyAt(pos int64) (Key, error) {
	s.sdMu.Lock()
	buf := make([]byte, 8)
	_, err := s.file.ReadAt(buf, pos)
	s.sdMu.Unlock()
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return decodeKey(buf), nil
}

// alignDown rounds ts down to the nearest multiple of interval.
func alignDown(ts, interval uint32) uint32 {
	if interval == 0 {
		return ts
	}
	return ts - ts%interval
}

// IsCorruption reports whether err is (or wraps) ErrCorruptionDetected.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruptionDetected)
}
