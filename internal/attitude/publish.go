// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

// PublishStage implements spec.md §4.3: build the raw and attitude
// records for this cycle from the sensor stage's corrected vectors and
// the estimator's current quaternion.
func (e *Estimator) PublishStage(gyro, accel [3]float64, consumed, remaining int) (RawRecord, AttitudeRecord) {
	roll, pitch, yaw := e.Q.Euler()

	raw := RawRecord{
		Gyros:    gyro,
		Accels:   accel,
		GyroTemp: [2]float64{float64(remaining), float64(consumed)},
	}
	att := AttitudeRecord{
		Q1: e.Q[0], Q2: e.Q[1], Q3: e.Q[2], Q4: e.Q[3],
		Roll: roll, Pitch: pitch, Yaw: yaw,
	}
	return raw, att
}
