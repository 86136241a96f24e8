// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads and republishes the attitude core's tuning and
// wiring settings: the complementary-filter coefficients, bias values,
// board-mount rotation, and the MQTT broker/topic wiring of
// internal/telemetry. It keeps the teacher's own KEY=VALUE line format and
// singleton access pattern rather than reaching for a config library the
// pack doesn't otherwise use.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker   string
	MQTTClientID string

	// Topics (published)
	TopicRaw      string
	TopicAttitude string

	// Topics (consumed)
	TopicFlightStatus      string
	TopicAttitudeSettings  string

	// IMU hardware wiring (periph.io SPI device + chip-select pin)
	IMUSPIDevice string
	IMUCSPin     string

	// IMU sensor ranges: Accelerometer 0=±2g,1=±4g,2=±8g,3=±16g; Gyro
	// 0=±250°/s,1=±500°/s,2=±1000°/s,3=±2000°/s
	IMUAccelRange byte
	IMUGyroRange  byte

	// IMU sample rate configuration
	IMUDLPFConfig    byte
	IMUSampleRateDiv byte
	IMUAccelDLPF     byte

	// Timing (spec.md §5)
	UpdateRateMillis int // nominal 2ms (500Hz)
	ADCRateHz        int

	// Attitude complementary-filter coefficients (spec.md §3/§4.4)
	AccelKp      float64
	AccelKi      float64
	YawBiasRate  float64
	GyroGain     float64

	// Accel bias, raw counts (spec.md §4.1)
	AccelBiasX int
	AccelBiasY int
	AccelBiasZ int

	// Gyro bias, persisted ×100 (spec.md §4.4)
	GyroBiasX int
	GyroBiasY int
	GyroBiasZ int

	// Board-mount rotation, degrees (spec.md §4.4)
	BoardRotationRoll  float64
	BoardRotationPitch float64
	BoardRotationYaw   float64

	ZeroDuringArming bool
	BiasCorrectGyro  bool
}

// Package-level unexported variables for singleton pattern, mirroring the
// rest of the pack's accessor style: InitGlobal() sets it once, Get()
// reads it under a read lock so concurrent readers never block each
// other.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the spec.md defaults: Kp=0.05,
// Ki=0.0001, yaw bias rate 0, gyro gain 0.42 (spec.md §4.1), 2ms update
// rate.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientID:          "attitude-core",
		TopicRaw:              "attitude/raw",
		TopicAttitude:         "attitude/attitude",
		TopicFlightStatus:     "attitude/flight-status",
		TopicAttitudeSettings: "attitude/settings",
		IMUSPIDevice:          "/dev/spidev6.0",
		IMUCSPin:              "18",
		IMUAccelRange:         0,
		IMUGyroRange:          0,
		IMUDLPFConfig:         3,
		IMUSampleRateDiv:      0,
		IMUAccelDLPF:          3,
		UpdateRateMillis:      2,
		ADCRateHz:             1000,
		AccelKp:               0.05,
		AccelKi:               0.0001,
		YawBiasRate:           0,
		GyroGain:              0.42,
		ZeroDuringArming:      true,
		BiasCorrectGyro:       true,
	}
}

// Load reads the configuration file, starting from Default() and
// overriding with whatever KEY=VALUE lines are present.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	case "TOPIC_RAW":
		c.TopicRaw = value
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value
	case "TOPIC_FLIGHT_STATUS":
		c.TopicFlightStatus = value
	case "TOPIC_ATTITUDE_SETTINGS":
		c.TopicAttitudeSettings = value

	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	case "IMU_ACCEL_RANGE":
		v, err := parseByteRange(value, 0, 3)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		c.IMUAccelRange = v
	case "IMU_GYRO_RANGE":
		v, err := parseByteRange(value, 0, 3)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		c.IMUGyroRange = v
	case "IMU_DLPF_CFG":
		v, err := parseByteRange(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid IMU_DLPF_CFG %q: %w", value, err)
		}
		c.IMUDLPFConfig = v
	case "IMU_SMPLRT_DIV":
		v, err := parseByteRange(value, 0, 255)
		if err != nil {
			return fmt.Errorf("invalid IMU_SMPLRT_DIV %q: %w", value, err)
		}
		c.IMUSampleRateDiv = v
	case "IMU_ACCEL_DLPF":
		v, err := parseByteRange(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_DLPF %q: %w", value, err)
		}
		c.IMUAccelDLPF = v

	case "UPDATE_RATE_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid UPDATE_RATE_MS %q: %w", value, err)
		}
		c.UpdateRateMillis = v
	case "ADC_RATE_HZ":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ADC_RATE_HZ %q: %w", value, err)
		}
		c.ADCRateHz = v

	case "ATTITUDE_ACCEL_KP":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ACCEL_KP %q: %w", value, err)
		}
		c.AccelKp = v
	case "ATTITUDE_ACCEL_KI":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ACCEL_KI %q: %w", value, err)
		}
		c.AccelKi = v
	case "ATTITUDE_YAW_BIAS_RATE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_YAW_BIAS_RATE %q: %w", value, err)
		}
		c.YawBiasRate = v
	case "ATTITUDE_GYRO_GAIN":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_GYRO_GAIN %q: %w", value, err)
		}
		c.GyroGain = v

	case "ATTITUDE_ACCEL_BIAS_X":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ACCEL_BIAS_X %q: %w", value, err)
		}
		c.AccelBiasX = v
	case "ATTITUDE_ACCEL_BIAS_Y":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ACCEL_BIAS_Y %q: %w", value, err)
		}
		c.AccelBiasY = v
	case "ATTITUDE_ACCEL_BIAS_Z":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ACCEL_BIAS_Z %q: %w", value, err)
		}
		c.AccelBiasZ = v

	case "ATTITUDE_GYRO_BIAS_X":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_GYRO_BIAS_X %q: %w", value, err)
		}
		c.GyroBiasX = v
	case "ATTITUDE_GYRO_BIAS_Y":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_GYRO_BIAS_Y %q: %w", value, err)
		}
		c.GyroBiasY = v
	case "ATTITUDE_GYRO_BIAS_Z":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_GYRO_BIAS_Z %q: %w", value, err)
		}
		c.GyroBiasZ = v

	case "ATTITUDE_BOARD_ROTATION_ROLL":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_BOARD_ROTATION_ROLL %q: %w", value, err)
		}
		c.BoardRotationRoll = v
	case "ATTITUDE_BOARD_ROTATION_PITCH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_BOARD_ROTATION_PITCH %q: %w", value, err)
		}
		c.BoardRotationPitch = v
	case "ATTITUDE_BOARD_ROTATION_YAW":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_BOARD_ROTATION_YAW %q: %w", value, err)
		}
		c.BoardRotationYaw = v

	case "ATTITUDE_ZERO_DURING_ARMING":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_ZERO_DURING_ARMING %q: %w", value, err)
		}
		c.ZeroDuringArming = v
	case "ATTITUDE_BIAS_CORRECT_GYRO":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_BIAS_CORRECT_GYRO %q: %w", value, err)
		}
		c.BiasCorrectGyro = v

	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	return nil
}

func parseByteRange(value string, lo, hi int) (byte, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("must be %d-%d, got %d", lo, hi, v)
	}
	return byte(v), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if c.UpdateRateMillis <= 0 {
		return fmt.Errorf("UPDATE_RATE_MS must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Snapshot is the subset of Config the settings notifier republishes into
// the attitude task on each change (spec.md §4.4): filter coefficients,
// bias seed, rotation, and flags. It is a plain value so posting it on a
// channel hands over a consistent copy atomically, per spec.md §5's
// "marshal notifier work onto the attitude task" option.
type Snapshot struct {
	AccelKp     float64
	AccelKi     float64
	YawBiasRate float64
	GyroGain    float64

	AccelBiasX, AccelBiasY, AccelBiasZ int

	// GyroBiasSeed is GyroBias{X,Y,Z} already divided by 100 (spec.md §4.4).
	GyroBiasSeedX, GyroBiasSeedY, GyroBiasSeedZ float64

	BoardRotationRoll, BoardRotationPitch, BoardRotationYaw float64

	ZeroDuringArming bool
	BiasCorrectGyro  bool
}

// ToSnapshot converts the loaded Config into the Snapshot the attitude
// settings notifier publishes.
func (c *Config) ToSnapshot() Snapshot {
	return Snapshot{
		AccelKp:            c.AccelKp,
		AccelKi:            c.AccelKi,
		YawBiasRate:        c.YawBiasRate,
		GyroGain:           c.GyroGain,
		AccelBiasX:         c.AccelBiasX,
		AccelBiasY:         c.AccelBiasY,
		AccelBiasZ:         c.AccelBiasZ,
		GyroBiasSeedX:      float64(c.GyroBiasX) / 100,
		GyroBiasSeedY:      float64(c.GyroBiasY) / 100,
		GyroBiasSeedZ:      float64(c.GyroBiasZ) / 100,
		BoardRotationRoll:  c.BoardRotationRoll,
		BoardRotationPitch: c.BoardRotationPitch,
		BoardRotationYaw:   c.BoardRotationYaw,
		ZeroDuringArming:   c.ZeroDuringArming,
		BiasCorrectGyro:    c.BiasCorrectGyro,
	}
}
