package odb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardObjects(t *testing.T) {
	objects, err := StandardObjects()
	require.NoError(t, err)
	require.NotEmpty(t, objects)

	names := map[string]bool{}
	for _, obj := range objects {
		assert.False(t, names[obj.Name], "duplicate standard object %q", obj.Name)
		names[obj.Name] = true
	}
	for _, want := range []string{"device_type", "scet", "satellite_id", "versions", "identity"} {
		assert.True(t, names[want], "missing standard object %q", want)
	}
}

func TestMergedConfigCombinesCommonAndBase(t *testing.T) {
	cards, err := LoadCards(AuroraSat0_5)
	require.NoError(t, err)

	config, err := MergedConfig(AuroraSat0_5, "battery_1", cards["battery_1"])
	require.NoError(t, err)

	names := map[string]bool{}
	for _, obj := range config.Objects {
		names[obj.Name] = true
	}
	assert.True(t, names["card"], "fw_common objects missing from merge")
	assert.True(t, names["pack_1"], "battery objects missing from merge")

	nums := map[int]bool{}
	for _, tpdo := range config.TPDOs {
		assert.False(t, nums[tpdo.Num], "duplicate tpdo %d after merge", tpdo.Num)
		nums[tpdo.Num] = true
	}
	assert.True(t, nums[1], "fw_common tpdo 1 missing")
	assert.True(t, nums[2], "battery tpdo 2 missing")
}

func TestMergedConfigUsesSWCommonForLinuxCards(t *testing.T) {
	cards, err := LoadCards(AuroraSat0_5)
	require.NoError(t, err)

	config, err := MergedConfig(AuroraSat0_5, "cfc", cards["cfc"])
	require.NoError(t, err)

	found := false
	for _, obj := range config.Objects {
		if obj.Name == "card" {
			found = true
			for _, sub := range obj.Subindexes {
				assert.NotEqual(t, "vdd", sub.Name, "octavo cards have no vdd reading")
			}
		}
	}
	assert.True(t, found, "sw_common card object missing")
}

func TestMergedConfigAppliesOverlay(t *testing.T) {
	cards, err := LoadCards(AuroraSat1)
	require.NoError(t, err)

	config, err := MergedConfig(AuroraSat1, "battery_1", cards["battery_1"])
	require.NoError(t, err)

	var pack1Subs []string
	for _, obj := range config.Objects {
		if obj.Name != "pack_1" {
			continue
		}
		for _, sub := range obj.Subindexes {
			pack1Subs = append(pack1Subs, sub.Name)
		}
	}
	assert.Contains(t, pack1Subs, "cell_delta", "aurorasat1 overlay adds cell_delta")

	// the same card without the overlay does not have it
	base, err := MergedConfig(AuroraSat0_5, "battery_1", cards["battery_1"])
	require.NoError(t, err)
	for _, obj := range base.Objects {
		if obj.Name == "pack_1" {
			for _, sub := range obj.Subindexes {
				assert.NotEqual(t, "cell_delta", sub.Name)
			}
		}
	}
}

func TestLoadBeacon(t *testing.T) {
	for _, m := range Missions() {
		beacon, err := LoadBeacon(m)
		require.NoError(t, err, m)
		assert.NotZero(t, beacon.Revision, m)
		assert.NotEmpty(t, beacon.Fields, m)
		assert.Equal(t, "KJ7SAT", beacon.AX25.SrcCallsign, m)
	}
}
