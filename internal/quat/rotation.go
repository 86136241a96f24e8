// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package quat

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is the board-mount alignment correction R of spec.md §3:
// an orthonormal 3x3 applied to raw accel/gyro vectors before bias/scale.
type RotationMatrix struct {
	m *mat.Dense
}

// IdentityRotation returns the no-op board rotation.
func IdentityRotation() RotationMatrix {
	return RotationMatrix{m: mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// RotationFromQuaternion derives the 3x3 rotation matrix for q, the
// standard body-to-world conversion also used by BodyDown.
func RotationFromQuaternion(q Quaternion) RotationMatrix {
	q0, q1, q2, q3 := q[0], q[1], q[2], q[3]
	data := []float64{
		1 - 2*(q2*q2+q3*q3), 2 * (q1*q2 - q0*q3), 2 * (q1*q3 + q0*q2),
		2 * (q1*q2 + q0*q3), 1 - 2*(q1*q1+q3*q3), 2 * (q2*q3 - q0*q1),
		2 * (q1*q3 - q0*q2), 2 * (q2*q3 + q0*q1), 1 - 2*(q1*q1+q2*q2),
	}
	return RotationMatrix{m: mat.NewDense(3, 3, data)}
}

// Apply rotates v by R.
func (r RotationMatrix) Apply(v [3]float64) [3]float64 {
	in := mat.NewVecDense(3, v[:])
	var out mat.VecDense
	out.MulVec(r.m, in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// Orthonormal reports whether R is orthonormal to within tol, the
// invariant spec.md §3 requires whenever the rotate flag is set: R^T R = I.
func (r RotationMatrix) Orthonormal(tol float64) bool {
	var rt, product mat.Dense
	rt.CloneFrom(r.m.T())
	product.Mul(&rt, r.m)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(product.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}

// BoardRotation builds the §4.4 board-mount rotation from the configured
// roll/pitch/yaw in degrees. If all three are zero it returns
// (IdentityRotation(), false) — rotate should be cleared in that case.
func BoardRotation(rollDeg, pitchDeg, yawDeg float64) (RotationMatrix, bool) {
	if rollDeg == 0 && pitchDeg == 0 && yawDeg == 0 {
		return IdentityRotation(), false
	}
	q := FromEulerDeg(rollDeg, pitchDeg, yawDeg)
	return RotationFromQuaternion(q), true
}
