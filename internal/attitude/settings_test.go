package attitude_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/attitude-core/internal/attitude"
	"github.com/relabs-tech/attitude-core/internal/config"
)

func TestSettingsNotifierAppliesRecordOntoBaseCopy(t *testing.T) {
	base := config.Default()
	updates := make(chan config.Snapshot, 1)
	notifier := attitude.NewSettingsNotifier(base, updates)

	rec := attitude.AttitudeSettingsRecord{
		AccelKp:       0.08,
		AccelKi:       0.0003,
		YawBiasRate:   0.01,
		GyroGain:      0.5,
		AccelBias:     [3]float64{1, 2, 3},
		GyroBias:      [3]float64{100, -50, 0},
		BoardRotation: [3]float64{0, 0, 90},
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	notifier.Deliver(payload)

	select {
	case snap := <-updates:
		require.Equal(t, 0.08, snap.AccelKp)
		require.Equal(t, 0.0003, snap.AccelKi)
		require.Equal(t, 0.01, snap.YawBiasRate)
		require.Equal(t, 0.5, snap.GyroGain)
		require.Equal(t, 1, snap.AccelBiasX)
		require.Equal(t, 2, snap.AccelBiasY)
		require.Equal(t, 3, snap.AccelBiasZ)
		require.Equal(t, 1.0, snap.GyroBiasSeedX)
		require.Equal(t, -0.5, snap.GyroBiasSeedY)
		require.Equal(t, 90.0, snap.BoardRotationYaw)
	default:
		t.Fatal("expected an update on the channel")
	}

	// Base's original values survive untouched: the notifier mutated only
	// its own private copy.
	require.Equal(t, config.Default().AccelKp, base.AccelKp)
}

func TestSettingsNotifierDropsUpdateWhenChannelFull(t *testing.T) {
	base := config.Default()
	updates := make(chan config.Snapshot, 1)
	updates <- base.ToSnapshot()

	notifier := attitude.NewSettingsNotifier(base, updates)
	payload, err := json.Marshal(attitude.AttitudeSettingsRecord{AccelKp: 0.9})
	require.NoError(t, err)

	require.NotPanics(t, func() { notifier.Deliver(payload) })
	require.Len(t, updates, 1)
}

func TestSettingsNotifierIgnoresMalformedPayload(t *testing.T) {
	base := config.Default()
	updates := make(chan config.Snapshot, 1)
	notifier := attitude.NewSettingsNotifier(base, updates)

	require.NotPanics(t, func() { notifier.Deliver([]byte("not json")) })
	require.Len(t, updates, 0)
}
