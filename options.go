package datalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/auramon-energy/datalog/internal/logging"
)

const (
	// defaultInterval is the default seconds between consecutive records.
	defaultInterval = 5

	// defaultRetentionDays sizes maxFileSize when the caller doesn't.
	defaultRetentionDays = 30

	// secondsPerDay is used to compute maxFileSize from retention.
	secondsPerDay = 86400

	// defaultReadCacheSize matches spec: a ring of 10 recent keys.
	defaultReadCacheSize = 10

	// defaultMutexTimeout bounds Read's wait for the log mutex.
	defaultMutexTimeout = 50 * time.Millisecond
)

// Options configures a Store. Zero-valued fields are filled with defaults
// by Open; NewOptions applies the same defaults and then functional options.
type Options struct {
	Interval       uint32
	RetentionDays  int
	Logger         logging.Logger
	Registerer     prometheus.Registerer
	ReadCacheSize  int
	TailCacheSize  int
	MutexTimeout   time.Duration
}

// Option mutates an Options in place, following the teacher's functional
// option pattern.
type Option func(*Options)

// NewOptions returns an Options with the reference configuration's
// defaults, then applies opts in order.
func NewOptions(opts ...Option) Options {
	o := Options{
		Interval:      defaultInterval,
		RetentionDays: defaultRetentionDays,
		ReadCacheSize: defaultReadCacheSize,
		MutexTimeout:  defaultMutexTimeout,
	}
	o.TailCacheSize = tailCacheSizeFor(o.Interval)
	for _, opt := range opts {
		opt(&o)
	}
	return o.withDefaults()
}

// withDefaults fills in any zero-valued field of a caller-constructed
// Options with the reference configuration's defaults. Open calls this
// directly so callers can build an Options literal without going through
// the functional-option constructor.
func (o Options) withDefaults() Options {
	if o.Interval == 0 {
		o.Interval = defaultInterval
	}
	if o.RetentionDays == 0 {
		o.RetentionDays = defaultRetentionDays
	}
	if o.ReadCacheSize == 0 {
		o.ReadCacheSize = defaultReadCacheSize
	}
	if o.TailCacheSize == 0 {
		o.TailCacheSize = tailCacheSizeFor(o.Interval)
	}
	if o.MutexTimeout == 0 {
		o.MutexTimeout = defaultMutexTimeout
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o
}

// tailCacheSizeFor computes the one-minute-of-history tail cache capacity
// for a given interval, per spec: 60/interval, at least 1.
func tailCacheSizeFor(interval uint32) int {
	if interval == 0 {
		return 1
	}
	n := 60 / int(interval)
	if n < 1 {
		n = 1
	}
	return n
}

// WithInterval sets the seconds between consecutive records.
func WithInterval(seconds uint32) Option {
	return func(o *Options) {
		o.Interval = seconds
		o.TailCacheSize = tailCacheSizeFor(seconds)
	}
}

// WithRetentionDays sets how many days of history maxFileSize should hold.
func WithRetentionDays(days int) Option {
	return func(o *Options) { o.RetentionDays = days }
}

// WithLogger sets the logger used by the store and its collaborators.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithRegisterer sets the Prometheus registerer metrics are registered
// against. A nil registerer (the default) disables registration.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = r }
}

// WithReadCacheSize overrides the read-cache ring capacity (default 10).
func WithReadCacheSize(n int) Option {
	return func(o *Options) { o.ReadCacheSize = n }
}

// WithTailCacheSize overrides the tail-cache ring capacity (default
// 60/interval).
func WithTailCacheSize(n int) Option {
	return func(o *Options) { o.TailCacheSize = n }
}

// WithMutexTimeout overrides Read's default wait for the log mutex.
func WithMutexTimeout(d time.Duration) Option {
	return func(o *Options) { o.MutexTimeout = d }
}

// maxFileSize computes the file-size cap for the given options.
func (o Options) maxFileSize() int64 {
	recordsPerDay := int64(secondsPerDay) / int64(o.Interval)
	return int64(RecordSize) * recordsPerDay * int64(o.RetentionDays)
}
