// Package integrator implements the periodic writer task (C5): once per
// log interval it samples every enabled device, folds the elapsed-time
// accumulation into an in-progress record, and calls Store.Write.
package integrator

import "time"

// DeviceSample is one device's instantaneous reading at the moment
// Accumulate was called.
type DeviceSample struct {
	Volts float64
	Watts float64
	VA    float64
	Hz    float64
}

// Device is the Go-native equivalent of the original firmware's
// device* pointer array: something that can report whether it is
// currently enabled and, when asked, sample its instantaneous
// electrical quantities.
//
// Accumulate is called at most once per integrator step and must not
// block; a device backed by a slow field-bus read should cache its
// last poll and return that.
type Device interface {
	Enabled() bool
	Accumulate(now time.Time) DeviceSample
}
