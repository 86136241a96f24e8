// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relabs-tech/attitude-core/internal/attitude"
	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/driver"
	"github.com/relabs-tech/attitude-core/internal/telemetry"
	"github.com/relabs-tech/attitude-core/internal/watchdog"
)

func main() {
	configPath := flag.String("config", "./attitude_config.txt", "path to configuration file")
	simulate := flag.Bool("simulate", false, "use a simulated IMU source instead of the real MPU9250")
	flag.Parse()

	log.Println("starting attitude-core estimator task")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	broker, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.Fatalf("telemetry connect: %v", err)
	}
	defer broker.Disconnect(250 * time.Millisecond)

	var source interface {
		driver.GyroQueue
		driver.AccelFIFO
	}
	if *simulate {
		log.Println("using simulated IMU source")
		gyro := driver.NewSimulatedGyroQueue(4)
		accel := driver.NewSimulatedAccelFIFO()
		go simulateLevelFlight(gyro, accel)
		source = struct {
			driver.GyroQueue
			driver.AccelFIFO
		}{gyro, accel}
	} else {
		mpu, err := driver.NewMPU9250Source(
			cfg.IMUSPIDevice, cfg.IMUCSPin,
			cfg.IMUAccelRange, cfg.IMUGyroRange, cfg.IMUDLPFConfig,
			cfg.IMUSampleRateDiv, cfg.IMUAccelDLPF,
			time.Second/time.Duration(cfg.ADCRateHz),
		)
		if err != nil {
			log.Fatalf("mpu9250 init: %v", err)
		}
		defer mpu.Close()
		source = mpu
	}

	alarm := watchdog.NewLoggingAlarm("ATTITUDE")
	updates := make(chan config.Snapshot, 1)
	notifier := attitude.NewSettingsNotifier(cfg, updates)
	if err := notifier.Subscribe(broker, cfg.TopicAttitudeSettings); err != nil {
		log.Fatalf("settings subscribe: %v", err)
	}

	var flightStatus atomic.Int32
	flightStatus.Store(int32(attitude.Disarmed))
	if err := broker.Subscribe(cfg.TopicFlightStatus, func(payload []byte) {
		flightStatus.Store(int32(parseFlightStatus(payload)))
	}); err != nil {
		log.Fatalf("flight status subscribe: %v", err)
	}

	task := &attitude.Task{
		Estimator:       attitude.NewEstimator(cfg.ToSnapshot()),
		GyroQueue:       source,
		AccelFIFO:       source,
		Clock:           driver.NewSystemClock(),
		Alarm:           alarm,
		Watchdog:        watchdog.NullWatchdog{},
		UpdateRate:      time.Duration(cfg.UpdateRateMillis) * time.Millisecond,
		SettingsUpdates: updates,
		FlightStatus:    func() attitude.ArmedState { return attitude.ArmedState(flightStatus.Load()) },
		Publish: func(raw attitude.RawRecord, att attitude.AttitudeRecord) error {
			if err := broker.Publish(cfg.TopicRaw, raw); err != nil {
				return err
			}
			return broker.Publish(cfg.TopicAttitude, att)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := task.AwaitFirstAccelSample(ctx, 10*time.Millisecond); err != nil {
		log.Fatalf("waiting for first accelerometer sample: %v", err)
	}

	log.Println("attitude task running")
	if err := task.Run(ctx); err != nil {
		log.Printf("attitude task stopped: %v", err)
	}
}

func parseFlightStatus(payload []byte) attitude.ArmedState {
	var rec attitude.FlightStatusRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		log.Printf("flight status: malformed record: %v", err)
		return attitude.Disarmed
	}
	return attitude.ParseArmedState(rec.Armed)
}

// simulateLevelFlight feeds a motionless, level attitude into the
// simulated source continuously, for running the task without hardware.
func simulateLevelFlight(gyro *driver.SimulatedGyroQueue, accel *driver.SimulatedAccelFIFO) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		accel.Push(driver.AccelSample{Z: 250})
		gyro.Push(driver.GyroSample{0, attitude.NeutralGyroCount, attitude.NeutralGyroCount, attitude.NeutralGyroCount})
	}
}
