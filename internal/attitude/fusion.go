// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import "math"

// clampUnit keeps a cosine argument in [-1, 1] before acos, guarding
// against the rounding noise that would otherwise produce a NaN.
func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// FusionStage implements spec.md §4.2: the gravity-error computation,
// acceleration gating and centripetal-rejection heuristic, the PI update
// (integral on X/Y only — Z is left to the sensor stage's yaw-bias sink,
// per spec.md §9's preserved-as-is note), and the quaternion integration
// and renormalization. gyro and accel are SensorStage's corrected output;
// kp/ki are the gains FusionStage's caller selected via the bootstrap/
// arming schedule; dtSeconds is the wrap-safe time step of spec.md §4.2.
func (e *Estimator) FusionStage(gyro, accel [3]float64, kp, ki, dtSeconds float64) {
	grot := e.Q.BodyDown()
	errVec := cross(accel, grot)

	normAccel := norm(accel)
	normGrot := norm(grot)
	var phi float64
	if normAccel > 0 && normGrot > 0 {
		phi = math.Acos(clampUnit(dot(accel, grot) / (normAccel * normGrot)))
	}
	if eNorm := norm(errVec); eNorm != 0 {
		errVec = scale(errVec, phi/eNorm)
	}

	// Acceleration gating and centripetal-rejection heuristic (spec.md
	// §4.2.3). The rescale by delta/||e|| rather than (||e||-delta)/||e||
	// is preserved verbatim from the source design; see DESIGN.md.
	a := normAccel
	if a <= AccelGateReference || a > 1.5*AccelGateReference {
		errVec = [3]float64{}
	} else if eNorm := norm(errVec); eNorm != 0 {
		delta := math.Acos(clampUnit(AccelGateReference / a))
		errVec = sub(errVec, scale(errVec, delta/eNorm))
	}

	// PI update: integral feedback on X/Y only (spec.md §4.2.4).
	e.Bias[0] += errVec[0] * ki
	e.Bias[1] += errVec[1] * ki

	corrected := [3]float64{
		gyro[0] + errVec[0]*kp/dtSeconds,
		gyro[1] + errVec[1]*kp/dtSeconds,
		gyro[2] + errVec[2]*kp/dtSeconds,
	}

	e.Q = e.Q.Integrate(corrected[0], corrected[1], corrected[2], dtSeconds)
}
