// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package quat implements the quaternion and rotation-matrix math the
// attitude estimator is built on: a minimal, dependency-light core type
// plus the board-mount rotation matrix construction used by the settings
// notifier.
package quat

import "math"

// Quaternion is a body-to-world orientation, (q0, q1, q2, q3) with q0 the
// scalar part. Unit-norm, q0 >= 0 by convention.
type Quaternion [4]float64

// Identity is the no-rotation quaternion.
var Identity = Quaternion{1, 0, 0, 0}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Degenerate reports whether q's norm collapsed (near zero or NaN), the
// condition spec.md requires resetting to identity on.
func (q Quaternion) Degenerate() bool {
	n := q.Norm()
	return n < 1e-3 || n != n
}

// Normalized returns q scaled to unit norm, canonicalized to q0 >= 0. If q
// is degenerate it returns Identity.
func (q Quaternion) Normalized() Quaternion {
	if q[0] < 0 {
		q = Quaternion{-q[0], -q[1], -q[2], -q[3]}
	}
	n := q.Norm()
	if n < 1e-3 || n != n {
		return Identity
	}
	return Quaternion{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

// BodyDown returns the world-down direction (0,0,-1) expressed in the body
// frame by q, i.e. R(q)^T * (0,0,-1). This is the "grot" term of spec.md
// §4.2.2.
func (q Quaternion) BodyDown() [3]float64 {
	q0, q1, q2, q3 := q[0], q[1], q[2], q[3]
	return [3]float64{
		-2 * (q1*q3 - q0*q2),
		-2 * (q2*q3 + q0*q1),
		-(q0*q0 - q1*q1 - q2*q2 + q3*q3),
	}
}

// Integrate advances q by one step of gyro rates (deg/s) over dt seconds,
// per spec.md §4.2.5, and returns the renormalized, hemisphere-canonical
// result (or Identity on degeneracy).
func (q Quaternion) Integrate(gx, gy, gz, dtSeconds float64) Quaternion {
	const halfDegToRad = math.Pi / 360
	k := dtSeconds * halfDegToRad
	q0, q1, q2, q3 := q[0], q[1], q[2], q[3]

	qdot0 := (-q1*gx - q2*gy - q3*gz) * k
	qdot1 := (q0*gx - q3*gy + q2*gz) * k
	qdot2 := (q3*gx + q0*gy - q1*gz) * k
	qdot3 := (-q2*gx + q1*gy + q0*gz) * k

	out := Quaternion{q0 + qdot0, q1 + qdot1, q2 + qdot2, q3 + qdot3}
	return out.Normalized()
}

// Euler returns roll, pitch, yaw in degrees under RPY (body 3-2-1) order.
func (q Quaternion) Euler() (rollDeg, pitchDeg, yawDeg float64) {
	q0, q1, q2, q3 := q[0], q[1], q[2], q[3]

	sinRoll := 2 * (q0*q1 + q2*q3)
	cosRoll := 1 - 2*(q1*q1+q2*q2)
	roll := math.Atan2(sinRoll, cosRoll)

	sinPitch := 2 * (q0*q2 - q3*q1)
	var pitch float64
	if sinPitch >= 1 {
		pitch = math.Pi / 2
	} else if sinPitch <= -1 {
		pitch = -math.Pi / 2
	} else {
		pitch = math.Asin(sinPitch)
	}

	sinYaw := 2 * (q0*q3 + q1*q2)
	cosYaw := 1 - 2*(q2*q2+q3*q3)
	yaw := math.Atan2(sinYaw, cosYaw)

	const radToDeg = 180 / math.Pi
	return roll * radToDeg, pitch * radToDeg, yaw * radToDeg
}

// FromEulerDeg builds the quaternion for the given roll/pitch/yaw in
// degrees, RPY order, used to turn a configured board-rotation triple into
// a quaternion before converting it to a rotation matrix.
func FromEulerDeg(rollDeg, pitchDeg, yawDeg float64) Quaternion {
	const degToRad = math.Pi / 180
	r, p, y := rollDeg*degToRad/2, pitchDeg*degToRad/2, yawDeg*degToRad/2

	cr, sr := math.Cos(r), math.Sin(r)
	cp, sp := math.Cos(p), math.Sin(p)
	cy, sy := math.Cos(y), math.Sin(y)

	return Quaternion{
		cr*cp*cy + sr*sp*sy,
		sr*cp*cy - cr*sp*sy,
		cr*sp*cy + sr*cp*sy,
		cr*cp*sy - sr*sp*cy,
	}.Normalized()
}
