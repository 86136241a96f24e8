// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"encoding/json"
	"log"

	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/telemetry"
)

// SettingsNotifier decodes AttitudeSettingsRecord payloads off the object
// broker and republishes them as config.Snapshot values on updates, the
// producer half of the settings notifier of spec.md §4.4/§5. It runs in
// the broker's own callback goroutine and keeps its own private copy of
// the base configuration, so a decoded record never mutates state shared
// with config.Get() or any other reader; the attitude task remains the
// sole mutator of Estimator state, reached only through updates.
type SettingsNotifier struct {
	base    config.Config
	updates chan<- config.Snapshot
}

// NewSettingsNotifier returns a notifier seeded from a copy of base: every
// decoded record is applied on top of that copy before converting to a
// Snapshot, so a partially populated settings record (e.g. from a UI that
// only edits gains) never zeroes out the rest of the tuning state.
func NewSettingsNotifier(base *config.Config, updates chan<- config.Snapshot) *SettingsNotifier {
	return &SettingsNotifier{base: *base, updates: updates}
}

// Subscribe registers the notifier on broker's settings topic.
func (n *SettingsNotifier) Subscribe(broker *telemetry.Broker, topic string) error {
	return broker.Subscribe(topic, n.Deliver)
}

// Deliver decodes one settings payload and, if valid, pushes the
// resulting Snapshot onto updates. Exposed directly so tests can drive
// the notifier without a live broker connection.
func (n *SettingsNotifier) Deliver(payload []byte) {
	// Start from the current base: json.Unmarshal leaves fields absent from
	// the payload untouched, so they keep their previous values.
	rec := AttitudeSettingsRecord{
		AccelKp:          n.base.AccelKp,
		AccelKi:          n.base.AccelKi,
		YawBiasRate:      n.base.YawBiasRate,
		GyroGain:         n.base.GyroGain,
		AccelBias:        [3]float64{float64(n.base.AccelBiasX), float64(n.base.AccelBiasY), float64(n.base.AccelBiasZ)},
		GyroBias:         [3]float64{float64(n.base.GyroBiasX), float64(n.base.GyroBiasY), float64(n.base.GyroBiasZ)},
		BoardRotation:    [3]float64{n.base.BoardRotationRoll, n.base.BoardRotationPitch, n.base.BoardRotationYaw},
		ZeroDuringArming: n.base.ZeroDuringArming,
		BiasCorrectGyro:  n.base.BiasCorrectGyro,
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		log.Printf("attitude: settings notifier: malformed record: %v", err)
		return
	}

	n.base.AccelKp = rec.AccelKp
	n.base.AccelKi = rec.AccelKi
	n.base.YawBiasRate = rec.YawBiasRate
	n.base.GyroGain = rec.GyroGain
	n.base.AccelBiasX = int(rec.AccelBias[0])
	n.base.AccelBiasY = int(rec.AccelBias[1])
	n.base.AccelBiasZ = int(rec.AccelBias[2])
	n.base.GyroBiasX = int(rec.GyroBias[0])
	n.base.GyroBiasY = int(rec.GyroBias[1])
	n.base.GyroBiasZ = int(rec.GyroBias[2])
	n.base.BoardRotationRoll = rec.BoardRotation[0]
	n.base.BoardRotationPitch = rec.BoardRotation[1]
	n.base.BoardRotationYaw = rec.BoardRotation[2]
	n.base.ZeroDuringArming = rec.ZeroDuringArming
	n.base.BiasCorrectGyro = rec.BiasCorrectGyro

	select {
	case n.updates <- n.base.ToSnapshot():
	default:
		// The attitude task drains this channel at the top of every
		// cycle; a full channel means an earlier snapshot is still
		// waiting there, and this newer one is dropped.
	}
}
