package quat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude-core/internal/quat"
)

func TestNormalizedIdempotence(t *testing.T) {
	q := quat.Quaternion{2, 0, 0, 0}.Normalized()
	require.InDelta(t, 1.0, q[0], 1e-9)
	require.InDelta(t, 0.0, q[1], 1e-9)
	require.InDelta(t, 0.0, q[2], 1e-9)
	require.InDelta(t, 0.0, q[3], 1e-9)
}

func TestNormalizedCanonicalizesHemisphere(t *testing.T) {
	q := quat.Quaternion{-1, 0, 0, 0}.Normalized()
	require.GreaterOrEqual(t, q[0], 0.0)
	require.InDelta(t, 1.0, q[0], 1e-9)
}

func TestDegenerateResetsToIdentity(t *testing.T) {
	q := quat.Quaternion{0, 0, 0, 0}
	require.True(t, q.Degenerate())
	require.Equal(t, quat.Identity, q.Normalized())

	nan := quat.Quaternion{math.NaN(), 0, 0, 0}
	require.True(t, nan.Degenerate())
	require.Equal(t, quat.Identity, nan.Normalized())
}

func TestBodyDownAtIdentityIsWorldDown(t *testing.T) {
	g := quat.Identity.BodyDown()
	require.InDelta(t, 0.0, g[0], 1e-9)
	require.InDelta(t, 0.0, g[1], 1e-9)
	require.InDelta(t, -1.0, g[2], 1e-9)
}

func TestEulerRoundTripsThroughFromEulerDeg(t *testing.T) {
	for _, c := range []struct{ roll, pitch, yaw float64 }{
		{0, 0, 0},
		{10, 0, 0},
		{0, 20, 0},
		{0, 0, 30},
		{15, -25, 40},
	} {
		q := quat.FromEulerDeg(c.roll, c.pitch, c.yaw)
		roll, pitch, yaw := q.Euler()
		require.InDelta(t, c.roll, roll, 1e-6)
		require.InDelta(t, c.pitch, pitch, 1e-6)
		require.InDelta(t, c.yaw, yaw, 1e-6)
	}
}

func TestIntegrateZeroRateIsStationary(t *testing.T) {
	q := quat.Identity
	for i := 0; i < 1000; i++ {
		q = q.Integrate(0, 0, 0, 0.002)
	}
	require.InDelta(t, 1.0, q[0], 1e-9)
	require.InDelta(t, 1.0, q.Norm(), 1e-9)
}

func TestIntegrateRollRateAccumulatesRoll(t *testing.T) {
	q := quat.Identity
	const dt = 0.002
	const steps = 500 // 1000ms total at dt=2ms
	for i := 0; i < steps; i++ {
		q = q.Integrate(90, 0, 0, dt)
	}
	roll, pitch, yaw := q.Euler()
	require.InDelta(t, 90.0, roll, 1.0)
	require.InDelta(t, 0.0, pitch, 1.0)
	require.InDelta(t, 0.0, yaw, 1.0)
}
