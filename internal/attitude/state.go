// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/quat"
)

// NeutralGyroCount is the ADC code corresponding to zero angular rate
// (spec.md §4.1, bit-exact).
const NeutralGyroCount = 1665

// MaxAccelDrain is the most accel FIFO samples the sensor stage will
// drain in one cycle (spec.md §4.1).
const MaxAccelDrain = 32

// AccelCountToMetersPerSecondSquared is the accelerometer scale factor of
// spec.md §4.1: 0.004 g/count * 9.81 m/s^2/g.
const AccelCountToMetersPerSecondSquared = 0.004 * 9.81

// GravityMetersPerSecondSquared is nominal 1g, the accelerometer scale
// reference of spec.md §4.1.
const GravityMetersPerSecondSquared = 9.81

// AccelGateReference is the 9.8 literal spec.md §4.2.3 uses for the
// acceleration gate and the centripetal-displacement angle — distinct
// from the 9.81 accel scale constant, so a nominal-1g reading (~9.81)
// still clears the lower gate.
const AccelGateReference = 9.8

// BootstrapStartMillis/BootstrapEndMillis bound the bootstrap gain
// override window of spec.md §4.2.1: uptime in [1000ms, 7000ms).
const (
	BootstrapStartMillis = 1000
	BootstrapEndMillis   = 7000
)

// Bootstrap/arming override gains (spec.md §4.2.1).
const (
	OverrideKp          = 1.0
	OverrideKi          = 0.9
	OverrideYawBiasRate = 0.23
)

// Estimator holds the filter state spec.md §3 requires exactly one task
// to mutate: the quaternion, the gyro bias integral, the board-mount
// rotation, and the complementary-filter coefficients. Settings updates
// are applied via ApplySettings, called by Task between cycles — never
// concurrently with SensorStage/FusionStage — so no locking is needed
// inside Estimator itself (spec.md §5's "marshal notifier work onto the
// attitude task" option).
type Estimator struct {
	Q    quat.Quaternion
	Bias [3]float64 // deg/s, integral gyro-bias correction

	accelBias [3]int // raw counts
	rotation  quat.RotationMatrix
	rotate    bool

	kp, ki, yawBiasRate, gyroGain float64
	zeroDuringArming              bool
	biasCorrectGyro               bool

	// base holds the most recently applied settings snapshot; the
	// bootstrap/arming override in activeGains substitutes fixed gains
	// without discarding it (spec.md §4.2.1).
	base config.Snapshot

	// normal is cleared while gains are overridden and set on the first
	// subsequent non-override cycle, at which point base is re-applied
	// to kp/ki/yawBiasRate (spec.md §4.2.1's "init" flag).
	normal bool

	// taskStartMillis anchors the uptime window used by the bootstrap
	// schedule; set once by Task on first cycle.
	taskStartMillis uint32
	haveStart       bool

	// lastTickMillis/haveLastTick support the wrap-safe dT computation
	// of spec.md §4.2 / §9.
	lastTickMillis uint32
	haveLastTick   bool
}

// NewEstimator returns an Estimator initialized to identity orientation,
// with settings applied from snap and the gyro bias seeded from snap's
// GyroBiasSeed values.
func NewEstimator(snap config.Snapshot) *Estimator {
	e := &Estimator{
		Q:      quat.Identity,
		normal: true,
	}
	e.ApplySettings(snap)
	return e
}

// ApplySettings implements the settings notifier of spec.md §4.4: copies
// the tunable coefficients and flags, seeds the gyro bias from the
// persisted (÷100) values, and rebuilds the board-mount rotation matrix.
// Called both at construction and on every live settings update
// (Task.drainSettings), so a runtime GyroBias change reaches the
// estimator exactly like the initial seed does.
func (e *Estimator) ApplySettings(snap config.Snapshot) {
	e.base = snap
	e.kp = snap.AccelKp
	e.ki = snap.AccelKi
	e.yawBiasRate = snap.YawBiasRate
	e.gyroGain = snap.GyroGain
	e.zeroDuringArming = snap.ZeroDuringArming
	e.biasCorrectGyro = snap.BiasCorrectGyro
	e.accelBias = [3]int{snap.AccelBiasX, snap.AccelBiasY, snap.AccelBiasZ}
	e.Bias = [3]float64{snap.GyroBiasSeedX, snap.GyroBiasSeedY, snap.GyroBiasSeedZ}

	e.rotation, e.rotate = quat.BoardRotation(
		snap.BoardRotationRoll, snap.BoardRotationPitch, snap.BoardRotationYaw,
	)
}

// activeGains returns the (Kp, Ki, yawBiasRate) in effect for this cycle,
// applying the bootstrap/arming override table of spec.md §4.2.1 and
// updating the init ("normal") flag.
func (e *Estimator) activeGains(uptimeMillis uint32, flight ArmedState) (kp, ki, yawBiasRate float64) {
	bootstrapping := uptimeMillis >= BootstrapStartMillis && uptimeMillis < BootstrapEndMillis
	arming := e.zeroDuringArming && flight == Arming

	if bootstrapping || arming {
		e.normal = false
		return OverrideKp, OverrideKi, OverrideYawBiasRate
	}

	if !e.normal {
		// First non-override cycle: re-read settings once.
		e.kp = e.base.AccelKp
		e.ki = e.base.AccelKi
		e.yawBiasRate = e.base.YawBiasRate
		e.normal = true
	}
	return e.kp, e.ki, e.yawBiasRate
}
