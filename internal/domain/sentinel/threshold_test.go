package sentinel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestThresholdStore_Set covers accepted and rejected updates.
func TestThresholdStore_Set(t *testing.T) {
	t.Parallel()

	store := NewThresholdStore(0)
	require.InDelta(t, DefaultThreshold, store.Get(), 0)

	value, err := store.Set("2600.5")
	require.NoError(t, err)
	require.InDelta(t, 2600.5, value, 0)
	require.InDelta(t, 2600.5, store.Get(), 0)

	value, err = store.Set("2500.0")
	require.NoError(t, err)
	require.InDelta(t, 2500.0, value, 0)

	for _, input := range []string{"abc", "", "NaN", "inf", "25O0"} {
		_, err = store.Set(input)
		require.ErrorIs(t, err, ErrThresholdNotNumeric, input)
		require.ErrorIs(t, err, ErrThresholdRejected, input)
		require.InDelta(t, 2500.0, store.Get(), 0, input)
	}

	for _, input := range []string{"0", "0.0", "-0"} {
		_, err = store.Set(input)
		require.ErrorIs(t, err, ErrThresholdZero, input)
		require.ErrorIs(t, err, ErrThresholdRejected, input)
		require.InDelta(t, 2500.0, store.Get(), 0, input)
	}

	value, err = store.Set(" -10 ")
	require.NoError(t, err)
	require.InDelta(t, -10.0, value, 0)
}

// TestThresholdCode checks truncation toward zero and clamping.
func TestThresholdCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(2500), ThresholdCode(2500.9))
	require.Equal(t, int64(-2), ThresholdCode(-2.7))
	require.Equal(t, int64(0), ThresholdCode(0.4))
	require.Equal(t, int64(math.MaxInt64), ThresholdCode(1e300))
	require.Equal(t, int64(math.MinInt64), ThresholdCode(-1e300))
	require.Equal(t, int64(math.MaxInt64), ThresholdCode(math.MaxInt64))
}

// TestParseArm covers every arm/disarm input.
func TestParseArm(t *testing.T) {
	t.Parallel()

	armed, result := ParseArm("arm")
	require.True(t, armed)
	require.Equal(t, ArmArmed, result)

	armed, result = ParseArm("disarm")
	require.False(t, armed)
	require.Equal(t, ArmDisarmed, result)

	_, result = ParseArm("ARM")
	require.Equal(t, ArmInvalid, result)
	require.Equal(t, "invalid", result.String())
}
