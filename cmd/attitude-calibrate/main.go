// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Guided bias calibration for the attitude estimator: captures a static
// gyro-rate sample and a single level-pose accelerometer sample, and
// prints the resulting ATTITUDE_* KEY=VALUE lines ready to paste into
// the configuration file (spec.md §4.1/§4.4's AccelBias/GyroBias
// fields). This is deliberately narrower than the original inertial
// computer's full gyro/accel/mag calibration wizard: board-mount
// rotation and magnetometer calibration are out of this estimator's
// scope.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/relabs-tech/attitude-core/internal/attitude"
	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/driver"
)

const (
	sampleHz           = 200
	gyroStaticDuration = 10 * time.Second
	accelPoseDuration  = 6 * time.Second
)

func main() {
	configPath := flag.String("config", "./attitude_config.txt", "path to configuration file")
	flag.Parse()

	fmt.Println("=== Attitude bias calibration ===")
	fmt.Println("Place the device still and level (Z axis up) before starting.")

	if err := config.InitGlobal(*configPath); err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	cfg := config.Get()

	source, err := driver.NewMPU9250Source(
		cfg.IMUSPIDevice, cfg.IMUCSPin,
		cfg.IMUAccelRange, cfg.IMUGyroRange, cfg.IMUDLPFConfig,
		cfg.IMUSampleRateDiv, cfg.IMUAccelDLPF,
		time.Second/time.Duration(cfg.ADCRateHz),
	)
	if err != nil {
		fatal(fmt.Errorf("mpu9250 init: %w", err))
	}
	defer source.Close()

	in := bufio.NewReader(os.Stdin)
	waitEnter(in, "Press ENTER to capture static gyro bias (10s)...")

	gyroMean, gyroSamples, err := captureGyro(source, gyroStaticDuration)
	if err != nil {
		fatal(fmt.Errorf("gyro capture: %w", err))
	}
	fmt.Printf("Gyro mean (raw counts): X=%.1f Y=%.1f Z=%.1f over %d samples\n",
		gyroMean[0], gyroMean[1], gyroMean[2], gyroSamples)

	waitEnter(in, "Press ENTER to capture level-pose accel bias (6s)...")

	accelMean, accelSamples, err := captureAccel(source, accelPoseDuration)
	if err != nil {
		fatal(fmt.Errorf("accel capture: %w", err))
	}
	fmt.Printf("Accel mean (raw counts): X=%.1f Y=%.1f Z=%.1f over %d samples\n",
		accelMean[0], accelMean[1], accelMean[2], accelSamples)

	// At rest and level, Z should read the one-g count the configured
	// accel scale implies (250 counts at the default 0.004 g/count
	// scale); X and Y should read zero. The accel bias field is a raw
	// count offset, applied before scale (spec.md §4.1) and after
	// SensorStage's axis sign mapping, which negates Y and Z, so the Y and
	// Z offsets are negated here too.
	const oneGCount = 1 / 0.004

	// The gyro bias field is a deg/s seed for the fusion stage's bias
	// integral (spec.md §4.4), persisted x100. A mean here at rest that
	// differs from NeutralGyroCount means the sensor's raw neutral point sits off
	// attitude.NeutralGyroCount; carry the residual through the same
	// axis convention and gain SensorStage applies so the seed lands in
	// the same sense as the PI controller's own bias corrections.
	gain := cfg.GyroGain
	gyroBiasDegPerSec := [3]float64{
		-(gyroMean[0] - attitude.NeutralGyroCount) * gain,
		(gyroMean[1] - attitude.NeutralGyroCount) * gain,
		-(gyroMean[2] - attitude.NeutralGyroCount) * gain,
	}

	fmt.Println()
	fmt.Println("Paste into the configuration file:")
	fmt.Printf("ATTITUDE_GYRO_BIAS_X=%d\n", int(math.Round(-gyroBiasDegPerSec[0]*100)))
	fmt.Printf("ATTITUDE_GYRO_BIAS_Y=%d\n", int(math.Round(-gyroBiasDegPerSec[1]*100)))
	fmt.Printf("ATTITUDE_GYRO_BIAS_Z=%d\n", int(math.Round(-gyroBiasDegPerSec[2]*100)))
	fmt.Printf("ATTITUDE_ACCEL_BIAS_X=%d\n", int(math.Round(accelMean[0])))
	fmt.Printf("ATTITUDE_ACCEL_BIAS_Y=%d\n", int(math.Round(-accelMean[1])))
	fmt.Printf("ATTITUDE_ACCEL_BIAS_Z=%d\n", int(math.Round(-(accelMean[2] - oneGCount))))
}

func captureGyro(source *driver.MPU9250Source, dur time.Duration) ([3]float64, int, error) {
	deadline := time.Now().Add(dur)
	var sum [3]float64
	n := 0
	for time.Now().Before(deadline) {
		sample, err := source.Receive(2 * time.Second)
		if err != nil {
			return sum, n, err
		}
		sum[0] += sample[1]
		sum[1] += sample[2]
		sum[2] += sample[3]
		n++
	}
	if n == 0 {
		return sum, 0, fmt.Errorf("no gyro samples received in %s", dur)
	}
	return [3]float64{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}, n, nil
}

func captureAccel(source *driver.MPU9250Source, dur time.Duration) ([3]float64, int, error) {
	deadline := time.Now().Add(dur)
	var sum [3]float64
	n := 0
	period := time.Second / sampleHz
	for time.Now().Before(deadline) {
		elements, err := source.Elements()
		if err != nil {
			return sum, n, err
		}
		for i := 0; i < elements; i++ {
			s, _, err := source.Pop()
			if err != nil {
				break
			}
			sum[0] += float64(s.X)
			sum[1] += float64(s.Y)
			sum[2] += float64(s.Z)
			n++
		}
		time.Sleep(period)
	}
	if n == 0 {
		return sum, 0, fmt.Errorf("no accel samples received in %s", dur)
	}
	return [3]float64{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}, n, nil
}

func waitEnter(in *bufio.Reader, prompt string) {
	fmt.Print(prompt)
	_, _ = in.ReadString('\n')
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
