// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"sync"
	"time"
)

// SimulatedGyroQueue is an in-memory GyroQueue for tests and bench
// scenarios: samples are pushed by the caller and drained by the
// attitude task exactly like a real ADC/FIFO queue would.
type SimulatedGyroQueue struct {
	ch chan GyroSample
}

// NewSimulatedGyroQueue returns a queue buffered to depth.
func NewSimulatedGyroQueue(depth int) *SimulatedGyroQueue {
	return &SimulatedGyroQueue{ch: make(chan GyroSample, depth)}
}

// Push enqueues a sample, blocking if the queue is full.
func (q *SimulatedGyroQueue) Push(s GyroSample) {
	q.ch <- s
}

// Receive implements GyroQueue.
func (q *SimulatedGyroQueue) Receive(timeout time.Duration) (GyroSample, error) {
	select {
	case s := <-q.ch:
		return s, nil
	case <-time.After(timeout):
		return GyroSample{}, ErrTimeout
	}
}

// SimulatedAccelFIFO is an in-memory AccelFIFO for tests: samples are
// pushed by the caller and drained (up to 32 per spec.md §4.1) by the
// sensor stage.
type SimulatedAccelFIFO struct {
	mu      sync.Mutex
	pending []AccelSample
}

// NewSimulatedAccelFIFO returns an empty FIFO.
func NewSimulatedAccelFIFO() *SimulatedAccelFIFO {
	return &SimulatedAccelFIFO{}
}

// Push appends a sample to the tail of the FIFO.
func (f *SimulatedAccelFIFO) Push(s AccelSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, s)
}

func (f *SimulatedAccelFIFO) Elements() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending), nil
}

func (f *SimulatedAccelFIFO) Pop() (AccelSample, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return AccelSample{}, 0, ErrFIFOEmpty
	}
	s := f.pending[0]
	f.pending = f.pending[1:]
	return s, len(f.pending), nil
}

// ManualClock is a Clock a test can advance explicitly, used to exercise
// dT computation (spec.md §4.2) without sleeping real time.
type ManualClock struct {
	mu   sync.Mutex
	tick uint32
}

func (c *ManualClock) TickMillis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Advance moves the clock forward by deltaMillis.
func (c *ManualClock) Advance(deltaMillis uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick += deltaMillis
}
