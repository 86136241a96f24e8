// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"github.com/relabs-tech/attitude-core/internal/driver"
)

// SensorStage implements spec.md §4.1: it applies the bit-exact
// sensor-to-body axis convention to the already-received gyro sample,
// drains up to MaxAccelDrain accelerometer FIFO entries and averages
// them, applies the board-mount rotation (if set) and the bias/scale
// corrections, and finally runs the unconditional yaw-bias sink.
//
// sample is the gyro reading the caller already pulled off the bounded
// queue (the caller owns that timeout, per spec.md §4.1's "the gyro has
// already been read" note); fifo is the accelerometer FIFO to drain.
// yawBiasRate is the coefficient in effect this cycle, as selected by the
// bootstrap/arming schedule of spec.md §4.2.1, which both stages share.
func (e *Estimator) SensorStage(sample driver.GyroSample, fifo driver.AccelFIFO, yawBiasRate float64) (gyro, accel [3]float64, consumed, remaining int, err error) {
	gyroRaw := [3]float64{
		-(sample[1] - NeutralGyroCount) * e.gyroGain,
		(sample[2] - NeutralGyroCount) * e.gyroGain,
		-(sample[3] - NeutralGyroCount) * e.gyroGain,
	}

	elements, ferr := fifo.Elements()
	if ferr != nil {
		return gyro, accel, 0, 0, ferr
	}
	if elements == 0 {
		return gyro, accel, 0, 0, driver.ErrFIFOEmpty
	}

	var sumX, sumY, sumZ float64
	lastRemaining := elements
	for consumed < MaxAccelDrain {
		s, rem, perr := fifo.Pop()
		if perr != nil {
			break
		}
		sumX += float64(s.X)
		sumY += float64(s.Y)
		sumZ += float64(s.Z)
		consumed++
		lastRemaining = rem
	}
	if consumed == 0 {
		return gyro, accel, 0, 0, driver.ErrFIFOEmpty
	}
	n := float64(consumed)
	accelRaw := [3]float64{sumX / n, -sumY / n, -sumZ / n}

	if e.rotate {
		accelRaw = e.rotation.Apply(accelRaw)
		gyroRaw = e.rotation.Apply(gyroRaw)
	}

	for i := 0; i < 3; i++ {
		accel[i] = (accelRaw[i] - float64(e.accelBias[i])) * AccelCountToMetersPerSecondSquared
	}

	gyro = gyroRaw
	if e.biasCorrectGyro {
		for i := 0; i < 3; i++ {
			gyro[i] += e.Bias[i]
		}
	}

	// Yaw-bias sink (spec.md §4.1): weakly drives the yaw bias to zero
	// the mean measured yaw rate, unconditionally once sensor stage
	// reaches this point.
	e.Bias[2] -= gyro[2] * yawBiasRate

	return gyro, accel, consumed, lastRemaining, nil
}
