package datalog

import "errors"

// ErrInvalidRange is returned by QueryRange when start >= end or interval
// is zero.
var ErrInvalidRange = errors.New("datalog: invalid query range")

// maxQuerySteps caps `end` at `start + interval*100`, bounding a single
// QueryRange call to at most 101 steps (both ends are inclusive).
const maxQuerySteps = 100

// DeviceSample holds the derived, rate quantities for one device over one
// query step, computed by differencing two consecutive records.
type DeviceSample struct {
	MeanVoltage  float64
	RealPowerW   float64
	ApparentVA   float64
	EnergyWh     float64
	PowerFactor  float64
}

// QueryStep is one row of the /energy response: a timestamp and the
// per-device derived samples for the interval ending at that timestamp.
type QueryStep struct {
	Ts      uint32
	Devices [MaxDevices]DeviceSample
	// Skipped is true when elapsedHours was non-positive for this step
	// (clock reset, duplicate record) and Devices is zero-valued.
	Skipped bool
}

// QueryRange implements the /energy derivation math against ordinary
// Store.Read calls: a baseline record at start-interval, then one record
// per interval step through end, each step's quantities derived from the
// difference against the previous step.
func (s *Store) QueryRange(start, end, interval uint32) ([]QueryStep, error) {
	interval = alignDown(interval, s.opts.Interval)
	start = alignDown(start, s.opts.Interval)
	end = alignDown(end, s.opts.Interval)

	if start >= end || interval == 0 {
		return nil, ErrInvalidRange
	}
	if maxEnd := start + interval*maxQuerySteps; end > maxEnd {
		end = maxEnd
	}

	baseline := s.Read(start-interval, s.opts.MutexTimeout)
	if baseline.Kind == ErrorOutcome {
		return nil, baseline.Err
	}
	prev := baseline.Record

	var steps []QueryStep
	for ts := start; ts <= end; ts += interval {
		out := s.Read(ts, s.opts.MutexTimeout)
		if out.Kind == ErrorOutcome {
			return nil, out.Err
		}
		rec := out.Record

		step := QueryStep{Ts: ts}
		elapsedHours := rec.LogHours - prev.LogHours
		if elapsedHours <= 0 {
			step.Skipped = true
		} else {
			for i := 0; i < MaxDevices; i++ {
				step.Devices[i] = deriveDeviceSample(prev, rec, i, elapsedHours)
			}
		}
		steps = append(steps, step)
		prev = rec
	}
	return steps, nil
}

// deriveDeviceSample computes one device's rate quantities for a step,
// from the cumulative integrals of two consecutive records.
func deriveDeviceSample(prev, rec Record, i int, elapsedHours float64) DeviceSample {
	voltHrsDelta := rec.VoltHrs[i] - prev.VoltHrs[i]
	wattHrsDelta := rec.WattHrs[i] - prev.WattHrs[i]
	vaHrsDelta := rec.VaHrs[i] - prev.VaHrs[i]

	realPower := wattHrsDelta / elapsedHours
	apparentPower := vaHrsDelta / elapsedHours

	sample := DeviceSample{
		MeanVoltage: voltHrsDelta / elapsedHours,
		RealPowerW:  realPower,
		ApparentVA:  apparentPower,
		EnergyWh:    wattHrsDelta,
	}
	if apparentPower != 0 {
		sample.PowerFactor = realPower / apparentPower
	}
	return sample
}
