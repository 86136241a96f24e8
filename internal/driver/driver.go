// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package driver defines the ADC/FIFO sensor surface the attitude core
// reads from each cycle (spec.md §4.1, §6): a bounded blocking queue of
// gyro samples and an accelerometer FIFO of pending samples. Both are
// external collaborators in spec.md's scope — this package holds only the
// interface contract plus one simulated and one periph.io-backed adapter,
// not a full sensor driver.
package driver

import (
	"errors"
	"time"
)

// ErrTimeout is returned by GyroQueue.Receive when no sample arrived
// within the deadline.
var ErrTimeout = errors.New("driver: gyro queue receive timed out")

// ErrFIFOEmpty is returned by AccelFIFO.Pop when the FIFO is empty.
var ErrFIFOEmpty = errors.New("driver: accelerometer FIFO empty")

// GyroSample is one raw gyro FIFO entry: index 0 is a temperature reading,
// indices 1..3 are the X/Y/Z raw counts (spec.md §4.1).
type GyroSample [4]float64

// GyroQueue is a bounded blocking queue yielding one GyroSample per
// period (spec.md §6).
type GyroQueue interface {
	// Receive blocks for up to timeout for the next sample. It returns
	// ErrTimeout if none arrives in time.
	Receive(timeout time.Duration) (GyroSample, error)
}

// AccelSample is one raw accelerometer FIFO entry (signed counts).
type AccelSample struct {
	X, Y, Z int32
}

// AccelFIFO is the accelerometer FIFO surface of spec.md §6:
// fifo_elements() -> count, read(&out) -> remaining_after_pop.
type AccelFIFO interface {
	// Elements returns the number of samples currently pending.
	Elements() (int, error)
	// Pop removes and returns the oldest pending sample along with the
	// remaining count after the pop.
	Pop() (sample AccelSample, remaining int, err error)
}

// Clock is the monotonic millisecond tick source of spec.md §6, with
// wrap-safe subtraction (spec.md §9).
type Clock interface {
	TickMillis() uint32
}

// SinceMillis computes a wrap-safe elapsed time in milliseconds between
// two Clock.TickMillis() readings, per spec.md's "mask the subtraction"
// note in §9.
func SinceMillis(prev, now uint32) uint32 {
	return now - prev // unsigned wraparound is well-defined in Go
}

// SystemClock is a Clock backed by the Go monotonic runtime clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock whose TickMillis counts milliseconds
// since the clock was created.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) TickMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}
