package attitude_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude-core/internal/attitude"
	"github.com/relabs-tech/attitude-core/internal/config"
	"github.com/relabs-tech/attitude-core/internal/quat"
)

func newTestEstimator(kp, ki float64) *attitude.Estimator {
	snap := config.Snapshot{
		AccelKp:  kp,
		AccelKi:  ki,
		GyroGain: 0.42,
	}
	return attitude.NewEstimator(snap)
}

// Law: zero-input stability (spec.md §8).
func TestZeroInputStability(t *testing.T) {
	e := newTestEstimator(0.05, 0.0001)
	gravity := [3]float64{0, 0, -attitude.GravityMetersPerSecondSquared}
	for i := 0; i < 10000; i++ {
		e.FusionStage([3]float64{}, gravity, 0.05, 0.0001, 0.002)
	}
	require.InDelta(t, 1.0, e.Q[0], 1e-4)
	require.InDelta(t, 0.0, e.Q[1], 1e-4)
	require.InDelta(t, 0.0, e.Q[2], 1e-4)
	require.InDelta(t, 0.0, e.Q[3], 1e-4)
}

// Law: gravity alignment convergence (spec.md §8).
func TestGravityAlignmentConvergence(t *testing.T) {
	const theta = math.Pi / 6 // 30 degrees, within |theta|<=pi/4
	accel := [3]float64{
		0,
		attitude.GravityMetersPerSecondSquared * math.Sin(theta),
		-attitude.GravityMetersPerSecondSquared * math.Cos(theta),
	}
	e := newTestEstimator(0.05, 0.0001)
	for i := 0; i < 5000; i++ {
		e.FusionStage([3]float64{}, accel, 0.05, 0.0001, 0.002)
	}
	_, pitch, _ := e.Q.Euler()
	require.InDelta(t, theta*180/math.Pi, pitch, 1.0)
}

// Law: acceleration rejection (spec.md §8).
func TestAccelerationRejectionAtHighG(t *testing.T) {
	e := newTestEstimator(0.05, 0.0001)
	accel := [3]float64{0, 0, -20} // ||accel|| = 20 m/s^2
	before := e.Q
	e.FusionStage([3]float64{10, 0, 0}, accel, 0.05, 0.0001, 0.002)
	// With the error vector gated to zero, the quaternion only reflects
	// gyro integration: compare against integrating gyro alone.
	want := before.Integrate(10, 0, 0, 0.002)
	require.InDelta(t, want[0], e.Q[0], 1e-12)
	require.InDelta(t, want[1], e.Q[1], 1e-12)
	require.InDelta(t, want[2], e.Q[2], 1e-12)
	require.InDelta(t, want[3], e.Q[3], 1e-12)
}

// Law: renormalization idempotence (spec.md §8).
func TestRenormalizationIdempotence(t *testing.T) {
	q := quat.Quaternion{2, 0, 0, 0}
	e := newTestEstimator(0, 0)
	e.Q = q
	// Zero rates/zero gains means Integrate's own renormalization is what
	// is being exercised; feed a gravity vector so the error stays zero
	// at this (already gravity-aligned) attitude.
	e.FusionStage([3]float64{}, [3]float64{0, 0, -attitude.GravityMetersPerSecondSquared}, 0, 0, 0.002)
	require.InDelta(t, 1.0, e.Q[0], 1e-9)
	require.InDelta(t, 0.0, e.Q[1], 1e-9)
	require.InDelta(t, 0.0, e.Q[2], 1e-9)
	require.InDelta(t, 0.0, e.Q[3], 1e-9)
}

// Invariant: unit norm and q0>=0 after every successful cycle.
func TestInvariantUnitNormAndNonNegativeQ0(t *testing.T) {
	e := newTestEstimator(0.05, 0.0001)
	accel := [3]float64{1.5, -2.0, -9.0}
	for i := 0; i < 200; i++ {
		e.FusionStage([3]float64{3, -1, 2}, accel, 0.05, 0.0001, 0.002)
		require.InDelta(t, 1.0, e.Q.Norm(), 1e-6)
		require.GreaterOrEqual(t, e.Q[0], 0.0)
	}
}
