package integrator

import (
	"time"

	"github.com/auramon-energy/datalog"
	"github.com/auramon-energy/datalog/internal/logging"
	"github.com/auramon-energy/datalog/internal/sched"
	"github.com/auramon-energy/datalog/internal/testutil"
)

// priority this task runs at on its core; it is the only writer task so
// the value only matters relative to other tasks sharing the core.
const writerPriority = 10

// deviceState is the per-device bookkeeping the integrator keeps between
// steps. It exists so a device that is disabled mid-run and re-enabled
// later does not contribute a stale sample as though time had not passed.
type deviceState struct {
	seenLastStep bool
}

// Option mutates an Integrator's configuration before Start.
type Option func(*Integrator)

// WithLogger overrides the integrator's logger.
func WithLogger(l logging.Logger) Option {
	return func(i *Integrator) { i.logger = l }
}

// Integrator is the periodic writer task (C5): once per log interval it
// samples every enabled device, folds the elapsed-time accumulation into
// an in-progress record, and writes it to the store. It owns no lock of
// its own — it runs single-threaded on its sched.Core, and the store's
// own mutex serializes it against API readers.
type Integrator struct {
	store    *datalog.Store
	devices  []Device
	interval time.Duration
	logger   logging.Logger

	states []deviceState

	running    bool
	rec        datalog.Record
	lastStepAt time.Time
}

// New builds an Integrator over devices, sampling at the store's
// configured interval.
func New(store *datalog.Store, devices []Device, opts ...Option) *Integrator {
	i := &Integrator{
		store:    store,
		devices:  devices,
		interval: time.Duration(store.Interval()) * time.Second,
		logger:   logging.OrDefault(nil),
		states:   make([]deviceState, len(devices)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start schedules the integrator's first step on core. The task
// reschedules itself for as long as core keeps running.
func (i *Integrator) Start(core *sched.Core) {
	core.ScheduleNow("Writer.Collect", writerPriority, i.step)
}

// step is one tick of the cooperative task: it either seeds the
// in-progress record from the store's last write, waits for the next
// aligned boundary, or accumulates one interval's worth of device
// readings and writes. It returns the delay until it should run again.
func (i *Integrator) step() time.Duration {
	testutil.MaybeKill(testutil.KPWriterCollect0)
	defer testutil.MaybeKill(testutil.KPWriterCollect1)

	now := time.Now()

	if !i.running {
		i.seed(now)
		i.running = true
	}

	nowTs := uint32(now.Unix())
	if nowTs < i.rec.Ts {
		// Not yet at the boundary this record is aiming for.
		return time.Duration(i.rec.Ts-nowTs) * time.Second
	}

	start := time.Now()
	i.accumulate(now)
	took := time.Since(start)

	i.store.Metrics().CollectTimeMsTotal.Add(float64(took.Milliseconds()))
	if len(i.devices) > 0 {
		i.store.Metrics().LastRunAvgMs.Set(float64(took.Milliseconds()) / float64(len(i.devices)))
	}

	if err := i.store.Write(i.rec); err != nil {
		i.logger.Errorf("%swrite failed at ts=%d: %v", logging.NSWriter, i.rec.Ts, err)
		i.store.Metrics().CollectErrorsTotal.Inc()
	}

	catchingUp := i.rec.Ts+i.intervalSeconds() <= nowTs
	i.lastStepAt = now
	i.rec.Ts += i.intervalSeconds()

	if catchingUp {
		// Behind schedule: run again immediately instead of sleeping a
		// full interval, mirroring the reference firmware's "return 1"
		// catch-up path.
		return time.Millisecond
	}
	return time.Until(time.Unix(int64(i.rec.Ts), 0))
}

// seed primes the in-progress record from the store's most recent write,
// or starts from zero if the log is empty, then aligns its target
// timestamp to the next interval boundary.
func (i *Integrator) seed(now time.Time) {
	if i.store.Entries() > 0 {
		out := i.store.Read(i.store.LastTs(), 0)
		if out.Kind == datalog.Found {
			i.rec = out.Record
		}
	}
	interval := i.intervalSeconds()
	nowTs := uint32(now.Unix())
	i.rec.Ts = nowTs - nowTs%interval + interval
	i.lastStepAt = now
}

// accumulate folds one interval's worth of per-device readings into the
// in-progress record: real, apparent and volt hour-integrals per device,
// a mean line-frequency hour-integral, and the cumulative run-hours
// counter.
func (i *Integrator) accumulate(now time.Time) {
	elapsedHours := now.Sub(i.lastStepAt).Hours()
	if elapsedHours < 0 {
		elapsedHours = 0
	}

	var hzSum float64
	var hzCount int

	for idx, dev := range i.devices {
		if idx >= datalog.MaxDevices {
			break
		}
		if dev == nil || !dev.Enabled() {
			i.states[idx] = deviceState{}
			continue
		}
		sample := dev.Accumulate(now)
		i.rec.VoltHrs[idx] += sample.Volts * elapsedHours
		i.rec.WattHrs[idx] += sample.Watts * elapsedHours
		i.rec.VaHrs[idx] += sample.VA * elapsedHours
		hzSum += sample.Hz
		hzCount++
		i.states[idx].seenLastStep = true
	}

	if hzCount > 0 {
		i.rec.HzHrs += (hzSum / float64(hzCount)) * elapsedHours
	}
	i.rec.LogHours += elapsedHours
}

func (i *Integrator) intervalSeconds() uint32 {
	return uint32(i.interval / time.Second)
}
