// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/driver"
	"github.com/relabs-tech/attitude-core/internal/watchdog"
)

func newTaskFixture(t *testing.T, snap config.Snapshot) (*Task, *driver.SimulatedGyroQueue, *driver.SimulatedAccelFIFO, *watchdog.LoggingAlarm, *watchdog.CountingWatchdog) {
	t.Helper()
	gyro := driver.NewSimulatedGyroQueue(4)
	accel := driver.NewSimulatedAccelFIFO()
	alarm := watchdog.NewLoggingAlarm("ATTITUDE")
	wd := &watchdog.CountingWatchdog{}
	task := &Task{
		Estimator:  NewEstimator(snap),
		GyroQueue:  gyro,
		AccelFIFO:  accel,
		Clock:      &driver.ManualClock{},
		Alarm:      alarm,
		Watchdog:   wd,
		UpdateRate: time.Millisecond,
	}
	return task, gyro, accel, alarm, wd
}

func defaultTestSnapshot() config.Snapshot {
	return config.Snapshot{AccelKp: 0.05, AccelKi: 0.0001, GyroGain: 0.42}
}

// AwaitFirstAccelSample unblocks as soon as the FIFO reports a sample
// (spec.md §5's startup gate).
func TestAwaitFirstAccelSampleUnblocksOnSample(t *testing.T) {
	task, _, accel, alarm, _ := newTaskFixture(t, defaultTestSnapshot())
	accel.Push(driver.AccelSample{Z: 250})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, task.AwaitFirstAccelSample(ctx, time.Millisecond))
	require.Equal(t, watchdog.OK, alarm.Severity())
}

func TestAwaitFirstAccelSampleRaisesCriticalUntilSample(t *testing.T) {
	task, _, accel, alarm, _ := newTaskFixture(t, defaultTestSnapshot())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- task.AwaitFirstAccelSample(ctx, time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, watchdog.Critical, alarm.Severity())
	accel.Push(driver.AccelSample{Z: 250})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitFirstAccelSample did not return after a sample arrived")
	}
}

// End-to-end: identity hold. Feeding neutral gyro and level gravity accel
// for many cycles keeps the quaternion at identity and kicks the watchdog
// once per cycle (spec.md §5, §8).
func TestEndToEndIdentityHold(t *testing.T) {
	task, gyro, accel, _, wd := newTaskFixture(t, defaultTestSnapshot())

	const cycles = 200
	cycleDone := make(chan bool)
	task.onCycle = func(ok bool) { cycleDone <- ok }

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = task.Run(ctx) }()
	defer cancel()

	for i := 0; i < cycles; i++ {
		accel.Push(driver.AccelSample{Z: 250})
		gyro.Push(driver.GyroSample{0, NeutralGyroCount, NeutralGyroCount, NeutralGyroCount})
		require.True(t, <-cycleDone)
	}

	require.Equal(t, cycles, wd.Kicks)
	require.InDelta(t, 1.0, task.Estimator.Q[0], 1e-3)
	require.InDelta(t, 0.0, task.Estimator.Q[1], 1e-3)
	require.InDelta(t, 0.0, task.Estimator.Q[2], 1e-3)
	require.InDelta(t, 0.0, task.Estimator.Q[3], 1e-3)
}

// End-to-end: gyro timeout. No sample arrives within 2xUpdateRate, so the
// cycle fails and an Error alarm is raised, but the watchdog still gets
// kicked (spec.md §5, §7: a soft error never starves the watchdog).
func TestEndToEndGyroTimeoutRaisesErrorAlarm(t *testing.T) {
	task, _, accel, alarm, wd := newTaskFixture(t, defaultTestSnapshot())
	accel.Push(driver.AccelSample{Z: 250})

	cycleDone := make(chan bool, 1)
	task.onCycle = func(ok bool) { cycleDone <- ok }

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = task.Run(ctx) }()
	defer cancel()

	select {
	case ok := <-cycleDone:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected a failed cycle from the gyro timeout")
	}
	require.Equal(t, watchdog.Error, alarm.Severity())
	require.GreaterOrEqual(t, wd.Kicks, 1)
}

// activeGains: the bootstrap window overrides regardless of configured
// gains, and reverts to the base settings exactly once it ends (spec.md
// §4.2.1).
func TestActiveGainsBootstrapOverrideAndReversion(t *testing.T) {
	e := NewEstimator(config.Snapshot{AccelKp: 0.05, AccelKi: 0.0001, YawBiasRate: 0.001})

	kp, ki, ybr := e.activeGains(BootstrapStartMillis, Disarmed)
	require.Equal(t, OverrideKp, kp)
	require.Equal(t, OverrideKi, ki)
	require.Equal(t, OverrideYawBiasRate, ybr)
	require.False(t, e.normal)

	kp, ki, ybr = e.activeGains(BootstrapEndMillis-1, Disarmed)
	require.Equal(t, OverrideKp, kp)
	require.Equal(t, OverrideKi, ki)
	require.Equal(t, OverrideYawBiasRate, ybr)

	kp, ki, ybr = e.activeGains(BootstrapEndMillis, Disarmed)
	require.Equal(t, 0.05, kp)
	require.Equal(t, 0.0001, ki)
	require.Equal(t, 0.001, ybr)
	require.True(t, e.normal)
}

// activeGains: arming also forces the override table, even well outside
// the bootstrap window, when ZeroDuringArming is set (spec.md §4.2.1).
func TestActiveGainsArmingOverrideOutsideBootstrapWindow(t *testing.T) {
	e := NewEstimator(config.Snapshot{AccelKp: 0.05, AccelKi: 0.0001, ZeroDuringArming: true})

	kp, ki, ybr := e.activeGains(60000, Arming)
	require.Equal(t, OverrideKp, kp)
	require.Equal(t, OverrideKi, ki)
	require.Equal(t, OverrideYawBiasRate, ybr)

	kp, ki, _ = e.activeGains(60000, Disarmed)
	require.Equal(t, 0.05, kp)
	require.Equal(t, 0.0001, ki)
}

// SensorStage applies the board-mount rotation to both gyro and accel
// before bias/scale correction (spec.md §3, §4.1).
func TestSensorStageAppliesBoardRotation(t *testing.T) {
	e := NewEstimator(config.Snapshot{GyroGain: 0.42, BoardRotationYaw: 90})

	sample := driver.GyroSample{0, NeutralGyroCount + 10, NeutralGyroCount, NeutralGyroCount}
	fifo := driver.NewSimulatedAccelFIFO()
	fifo.Push(driver.AccelSample{X: 250, Y: 0, Z: 0})

	gyro, accel, consumed, _, err := e.SensorStage(sample, fifo, 0)
	require.NoError(t, err)
	require.Equal(t, 1, consumed)

	// Pre-rotation this perturbation lands entirely on the X axis; a 90
	// degree yaw rotation carries it onto Y instead.
	require.InDelta(t, 0.0, gyro[0], 1e-9)
	require.NotZero(t, gyro[1])
	require.InDelta(t, 0.0, accel[0], 1e-9)
	require.NotZero(t, accel[1])
}

// SensorStage unconditionally drives the yaw bias integral by the
// measured yaw rate, independent of the fusion stage (spec.md §4.1).
func TestSensorStageYawBiasSink(t *testing.T) {
	e := NewEstimator(config.Snapshot{GyroGain: 0.42})
	fifo := driver.NewSimulatedAccelFIFO()
	fifo.Push(driver.AccelSample{Z: 250})

	sample := driver.GyroSample{0, NeutralGyroCount, NeutralGyroCount, NeutralGyroCount + 10}
	gyro, _, _, _, err := e.SensorStage(sample, fifo, 0.5)
	require.NoError(t, err)
	require.InDelta(t, -gyro[2]*0.5, e.Bias[2], 1e-9)
}

// SensorStage returns ErrFIFOEmpty when the accelerometer has nothing
// pending, matching the real hardware's "read before the first sample"
// race (spec.md §4.1, §7).
func TestSensorStageErrorsOnEmptyFIFO(t *testing.T) {
	e := NewEstimator(defaultTestSnapshot())
	fifo := driver.NewSimulatedAccelFIFO()
	sample := driver.GyroSample{0, NeutralGyroCount, NeutralGyroCount, NeutralGyroCount}

	_, _, _, _, err := e.SensorStage(sample, fifo, 0)
	require.ErrorIs(t, err, driver.ErrFIFOEmpty)
}
