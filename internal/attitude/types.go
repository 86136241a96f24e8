// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package attitude is the estimator core: the sensor, fusion, and
// publication stages of spec.md §4, run by a single dedicated task
// (spec.md §5) and re-tuned by a settings notifier (spec.md §4.4).
package attitude

// ArmedState mirrors the consumed flight-status record's Armed field
// (spec.md §6).
type ArmedState int

const (
	Disarmed ArmedState = iota
	Arming
	Armed
)

func (a ArmedState) String() string {
	switch a {
	case Disarmed:
		return "DISARMED"
	case Arming:
		return "ARMING"
	case Armed:
		return "ARMED"
	default:
		return "UNKNOWN"
	}
}

// RawRecord is the published corrected-sensor record of spec.md §6.
type RawRecord struct {
	Gyros    [3]float64 `json:"gyros"`    // deg/s, corrected
	Accels   [3]float64 `json:"accels"`   // m/s^2, corrected
	GyroTemp [2]float64 `json:"gyrotemp"` // [0]=samples remaining, [1]=samples consumed
}

// AttitudeRecord is the published orientation record of spec.md §6. Field
// names follow the consumed/published record's own q1..q4 numbering
// (q1=q0, the scalar part, through q4=q3).
type AttitudeRecord struct {
	Q1   float64 `json:"q1"`
	Q2   float64 `json:"q2"`
	Q3   float64 `json:"q3"`
	Q4   float64 `json:"q4"`
	Roll float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw  float64 `json:"yaw"`
}

// FlightStatusRecord is the consumed record of spec.md §6.
type FlightStatusRecord struct {
	Armed string `json:"armed"`
}

// ParseArmedState converts the wire value of FlightStatusRecord.Armed.
func ParseArmedState(s string) ArmedState {
	switch s {
	case "ARMING":
		return Arming
	case "ARMED":
		return Armed
	default:
		return Disarmed
	}
}

// AttitudeSettingsRecord is the consumed settings record of spec.md §6,
// as it travels over the wire (gyro bias stored ×100, per spec.md §4.4).
type AttitudeSettingsRecord struct {
	AccelKp          float64    `json:"AccelKp"`
	AccelKi          float64    `json:"AccelKi"`
	YawBiasRate      float64    `json:"YawBiasRate"`
	GyroGain         float64    `json:"GyroGain"`
	AccelBias        [3]float64 `json:"AccelBias"`
	GyroBias         [3]float64 `json:"GyroBias"`
	BoardRotation    [3]float64 `json:"BoardRotation"`
	ZeroDuringArming bool       `json:"ZeroDuringArming"`
	BiasCorrectGyro  bool       `json:"BiasCorrectGyro"`
}
