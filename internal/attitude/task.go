// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/driver"
	"github.com/relabs-tech/attitude-core/internal/watchdog"
)

// Task is the single dedicated loop of spec.md §5: sensor stage, fusion
// stage, and publication stage, strictly ordered, driven by the blocking
// gyro-queue receive rather than a timer.
type Task struct {
	Estimator *Estimator

	GyroQueue driver.GyroQueue
	AccelFIFO driver.AccelFIFO
	Clock     driver.Clock

	Alarm    watchdog.Alarm
	Watchdog watchdog.Watchdog

	// UpdateRate is spec.md's UPDATE_RATE (nominal 2ms); the gyro-queue
	// receive timeout is 2x this value.
	UpdateRate time.Duration

	// Publish is called once per successful cycle with the new raw and
	// attitude records (spec.md §4.3). Errors are logged, not fatal.
	Publish func(RawRecord, AttitudeRecord) error

	// SettingsUpdates delivers new config.Snapshot values from the
	// settings-change notifier (spec.md §4.4); it is drained
	// non-blockingly at the top of every cycle, which is the "marshal
	// notifier work onto the attitude task" option of spec.md §5.
	SettingsUpdates <-chan config.Snapshot

	// FlightStatus returns the currently-known Armed state (spec.md §6);
	// it must be safe to call from this goroutine only.
	FlightStatus func() ArmedState

	onCycle func(ok bool) // test hook, nil in production
}

// AwaitFirstAccelSample implements the startup gate of spec.md §5: spin,
// alarm at CRITICAL, kicking the watchdog, until the accelerometer FIFO
// reports at least one sample.
func (t *Task) AwaitFirstAccelSample(ctx context.Context, pollInterval time.Duration) error {
	for {
		t.Watchdog.Kick()
		n, err := t.AccelFIFO.Elements()
		if err == nil && n > 0 {
			t.Alarm.Clear()
			return nil
		}
		t.Alarm.Set(watchdog.Critical, "waiting for first accelerometer sample")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Run executes the pipeline forever (spec.md §5: "the task never
// terminates"), until ctx is cancelled. ctx is a Go-idiomatic shutdown
// hook for process lifecycle (tests, SIGTERM) — it does not change the
// in-loop timing semantics, which are governed entirely by the gyro
// queue's blocking receive.
func (t *Task) Run(ctx context.Context) error {
	gyroTimeout := 2 * t.UpdateRate

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.drainSettings()

		ok := t.runCycle(gyroTimeout)
		t.Watchdog.Kick()
		if t.onCycle != nil {
			t.onCycle(ok)
		}
	}
}

func (t *Task) drainSettings() {
	for {
		select {
		case snap := <-t.SettingsUpdates:
			t.Estimator.ApplySettings(snap)
		default:
			return
		}
	}
}

// runCycle runs one sensor/fusion/publication pass and reports whether it
// completed successfully.
func (t *Task) runCycle(gyroTimeout time.Duration) bool {
	sample, err := t.GyroQueue.Receive(gyroTimeout)
	if err != nil {
		t.Alarm.Set(watchdog.Error, fmt.Sprintf("gyro queue timeout: %v", err))
		return false
	}

	now := t.Clock.TickMillis()
	if !t.Estimator.haveStart {
		t.Estimator.taskStartMillis = now
		t.Estimator.haveStart = true
	}
	uptime := driver.SinceMillis(t.Estimator.taskStartMillis, now)

	flight := Disarmed
	if t.FlightStatus != nil {
		flight = t.FlightStatus()
	}
	kp, ki, yawBiasRate := t.Estimator.activeGains(uptime, flight)

	gyro, accel, consumed, remaining, err := t.Estimator.SensorStage(sample, t.AccelFIFO, yawBiasRate)
	if err != nil {
		t.Alarm.Set(watchdog.Error, fmt.Sprintf("sensor stage: %v", err))
		return false
	}

	dtMillis := driver.SinceMillis(t.Estimator.lastTickMillis, now)
	if !t.Estimator.haveLastTick || dtMillis == 0 {
		dtMillis = 1
	}
	t.Estimator.lastTickMillis = now
	t.Estimator.haveLastTick = true
	dtSeconds := float64(dtMillis) / 1000

	t.Estimator.FusionStage(gyro, accel, kp, ki, dtSeconds)

	raw, att := t.Estimator.PublishStage(gyro, accel, consumed, remaining)
	if t.Publish != nil {
		if perr := t.Publish(raw, att); perr != nil {
			// Publication failure does not roll back the fusion state;
			// it is surfaced like any other soft error (spec.md §7 names
			// no persistent error state for this path).
			t.Alarm.Set(watchdog.Error, fmt.Sprintf("publish: %v", perr))
			return false
		}
	}
	t.Alarm.Clear()
	return true
}
