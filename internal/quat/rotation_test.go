package quat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude-core/internal/quat"
)

func TestBoardRotationZeroIsIdentityAndNotRotate(t *testing.T) {
	r, rotate := quat.BoardRotation(0, 0, 0)
	require.False(t, rotate)
	out := r.Apply([3]float64{1, 2, 3})
	require.InDelta(t, 1.0, out[0], 1e-9)
	require.InDelta(t, 2.0, out[1], 1e-9)
	require.InDelta(t, 3.0, out[2], 1e-9)
}

func TestBoardRotationOrthonormal(t *testing.T) {
	r, rotate := quat.BoardRotation(180, 0, 0)
	require.True(t, rotate)
	require.True(t, r.Orthonormal(1e-9))
}

func TestBoardRotation180RollFlipsZ(t *testing.T) {
	r, _ := quat.BoardRotation(180, 0, 0)
	out := r.Apply([3]float64{0, 0, -1})
	require.InDelta(t, 0.0, out[0], 1e-6)
	require.InDelta(t, 0.0, out[1], 1e-6)
	require.InDelta(t, 1.0, out[2], 1e-6)
}
