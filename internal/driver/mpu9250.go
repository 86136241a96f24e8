// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// MPU9250 register addresses for the raw accel/gyro output pairs, per the
// sensor's datasheet.
const (
	regAccelXOutH = 0x3B
	regGyroXOutH  = 0x43
)

// MPU9250Source adapts a periph.io MPU9250 device to the GyroQueue and
// AccelFIFO contract spec.md §6 requires, by polling the sensor's raw
// output registers on a background goroutine at the configured ADC rate
// and depositing samples into a bounded gyro channel and a bounded accel
// buffer (at most 32 samples; new samples are discarded while it is
// full) — the real chip has no software-visible gyro "queue" or
// multi-sample accel "FIFO" at this layer, so this is the adapter spec.md
// §9 calls out: the ADC cadence, not a timer, governs the estimator's
// period via how fast this goroutine can fill the queue.
type MPU9250Source struct {
	dev *mpu9250.MPU9250

	gyroCh chan GyroSample

	mu          sync.Mutex
	accelFIFO   []AccelSample
	maxFIFODrop int

	stop chan struct{}
}

// NewMPU9250Source initializes an MPU9250 over SPI at spiDev with chip
// select csPin, following the teacher's own init sequence (ranges, DLPF,
// sample-rate divider, self-test, calibrate), and starts the polling
// goroutine at the given period.
func NewMPU9250Source(spiDev, csPin string, accelRange, gyroRange, dlpf, sampleRateDiv, accelDLPF byte, pollPeriod time.Duration) (*MPU9250Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: init: %w", err)
	}
	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("mpu9250: set gyro range: %w", err)
	}
	if err := dev.SetDLPFMode(dlpf); err != nil {
		return nil, fmt.Errorf("mpu9250: set DLPF: %w", err)
	}
	if err := dev.SetSampleRateDivider(sampleRateDiv); err != nil {
		return nil, fmt.Errorf("mpu9250: set sample rate divider: %w", err)
	}
	if err := dev.SetAccelDLPF(accelDLPF); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel DLPF: %w", err)
	}
	if _, err := dev.SelfTest(); err != nil {
		log.Printf("mpu9250: self-test failed (continuing): %v", err)
	}
	if err := dev.Calibrate(); err != nil {
		log.Printf("mpu9250: calibrate failed (continuing): %v", err)
	}

	s := &MPU9250Source{
		dev:         dev,
		gyroCh:      make(chan GyroSample, 4),
		maxFIFODrop: 32,
		stop:        make(chan struct{}),
	}
	go s.poll(pollPeriod)
	return s, nil
}

func (s *MPU9250Source) poll(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			gx, errx := s.readAxisRegisterPair(regGyroXOutH)
			gy, erry := s.readAxisRegisterPair(regGyroXOutH + 2)
			gz, errz := s.readAxisRegisterPair(regGyroXOutH + 4)
			if errx != nil || erry != nil || errz != nil {
				log.Printf("mpu9250: gyro read error: x=%v y=%v z=%v", errx, erry, errz)
				continue
			}
			sample := GyroSample{0, float64(gx), float64(gy), float64(gz)}
			select {
			case s.gyroCh <- sample:
			default:
				// queue full: drop the oldest so the task always sees
				// the freshest sample, matching a bounded hardware queue.
				select {
				case <-s.gyroCh:
				default:
				}
				s.gyroCh <- sample
			}

			ax, errax := s.readAxisRegisterPair(regAccelXOutH)
			ay, erray := s.readAxisRegisterPair(regAccelXOutH + 2)
			az, erraz := s.readAxisRegisterPair(regAccelXOutH + 4)
			if errax != nil || erray != nil || erraz != nil {
				log.Printf("mpu9250: accel read error: x=%v y=%v z=%v", errax, erray, erraz)
				continue
			}
			s.mu.Lock()
			if len(s.accelFIFO) < s.maxFIFODrop {
				s.accelFIFO = append(s.accelFIFO, AccelSample{X: int32(ax), Y: int32(ay), Z: int32(az)})
			}
			s.mu.Unlock()
		}
	}
}

func (s *MPU9250Source) readAxisRegisterPair(highAddr byte) (int16, error) {
	hi, err := s.dev.ReadRegister(highAddr)
	if err != nil {
		return 0, err
	}
	lo, err := s.dev.ReadRegister(highAddr + 1)
	if err != nil {
		return 0, err
	}
	return int16(uint16(hi)<<8 | uint16(lo)), nil
}

// Receive implements driver.GyroQueue.
func (s *MPU9250Source) Receive(timeout time.Duration) (GyroSample, error) {
	select {
	case sample := <-s.gyroCh:
		return sample, nil
	case <-time.After(timeout):
		return GyroSample{}, ErrTimeout
	}
}

// Elements implements driver.AccelFIFO.
func (s *MPU9250Source) Elements() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accelFIFO), nil
}

// Pop implements driver.AccelFIFO.
func (s *MPU9250Source) Pop() (AccelSample, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accelFIFO) == 0 {
		return AccelSample{}, 0, ErrFIFOEmpty
	}
	sample := s.accelFIFO[0]
	s.accelFIFO = s.accelFIFO[1:]
	return sample, len(s.accelFIFO), nil
}

// Close stops the polling goroutine.
func (s *MPU9250Source) Close() {
	close(s.stop)
}
