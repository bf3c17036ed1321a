package odb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorasat/candb/pkg/od"
)

func TestBuildAllMissions(t *testing.T) {
	for _, m := range Missions() {
		t.Run(m.String(), func(t *testing.T) {
			db, err := Build(m)
			require.NoError(t, err)
			require.Contains(t, db.ODs, "c3")
			assert.NotEmpty(t, db.Beacon)
			assert.NotEmpty(t, db.Persist)
			require.NotNil(t, db.FWBase)
		})
	}
}

func TestBuildCardODs(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)

	c3 := db.ODs["c3"]
	require.NotNil(t, c3)
	assert.Equal(t, uint8(0x01), c3.NodeID)

	battery := db.ODs["battery_1"]
	require.NotNil(t, battery)
	assert.Equal(t, uint8(0x04), battery.NodeID)

	// roster cards without a base config have no OD
	for name, dict := range db.ODs {
		assert.NotNil(t, dict, name)
		assert.NotZero(t, dict.NodeID, name)
	}

	// common objects from fw_common show up on stm32 cards
	card, err := battery.Entry("card", "uptime")
	require.NoError(t, err)
	assert.Equal(t, od.Unsigned32, card.DataType)

	// standard objects are per-card copies with the node id baked in
	emcy, err := battery.Entry("cob_id_emergency_message")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x84), emcy.Default)

	version, err := battery.Entry("versions", "configs_version")
	require.NoError(t, err)
	assert.Equal(t, Version, version.Default)

	satID, err := battery.Entry("satellite_id")
	require.NoError(t, err)
	assert.Equal(t, uint64(AuroraSat0_5), satID.Default)
}

func TestBuildPDOCommParameters(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)
	battery := db.ODs["battery_1"]

	// TPDO 2: second COB-ID slot above the card's node id
	comm, ok := battery.Object(TPDOCommStart + 1).(*od.Record)
	require.True(t, ok, "battery TPDO 2 communication parameters missing")
	cobID, err := comm.Sub(0x1).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x284), cobID)

	transmission, err := comm.Sub(0x2).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(254), transmission, "event driven PDOs use transmission type 254")

	sub0, err := comm.Sub(0).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x6), sub0)

	// every mapping value must point at a real entry of the right size
	for _, index := range battery.Indices() {
		if index < TPDOMapStart || index >= TPDOMapStart+0x200 {
			continue
		}
		mapRec, ok := battery.Object(index).(*od.Record)
		require.True(t, ok)
		for _, sub := range mapRec.Subs() {
			if sub.Subindex == 0 {
				continue
			}
			raw, err := sub.DefaultUint64()
			require.NoError(t, err)
			entry, err := battery.EntryAt(uint16(raw>>16), uint8(raw>>8))
			require.NoError(t, err, "mapping 0x%08X in 0x%04X", raw, index)
			assert.Equal(t, uint64(entry.DataType.BitSize()), raw&0xFF)
		}
	}
}

func TestBuildTimeSync(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)

	// the c3 produces time over its first TPDO
	c3 := db.ODs["c3"]
	comm, ok := c3.Object(TPDOCommStart).(*od.Record)
	require.True(t, ok)
	cobID, err := comm.Sub(0x1).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x181), cobID)

	// consumers mirror it straight into their own scet entry
	battery := db.ODs["battery_1"]
	mirrorComm, ok := battery.Object(RPDOCommStart + 16).(*od.Record)
	require.True(t, ok, "battery time sync RPDO missing")
	mirrorCobID, err := mirrorComm.Sub(0x1).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x181), mirrorCobID)

	mapRec, ok := battery.Object(RPDOMapStart + 16).(*od.Record)
	require.True(t, ok)
	raw, err := mapRec.Sub(0x1).DefaultUint64()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2010), uint16(raw>>16), "time sync maps into scet")
}

func TestBuildMirroredData(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)
	c3 := db.ODs["c3"]
	battery := db.ODs["battery_1"]

	// the c3 consumes every other card's TPDOs into the 0x5000 block
	mirror, ok := c3.Object(0x5000 + uint16(battery.NodeID)).(*od.Record)
	require.True(t, ok, "c3 is missing battery_1 mirror data")
	assert.Equal(t, "battery_1", mirror.ObjName())

	vbatt := mirror.SubNamed("pack_1_vbatt")
	require.NotNil(t, vbatt, "mirrored subs are named parent_sub")
	assert.Equal(t, od.AccessRW, vbatt.Access)
	assert.True(t, vbatt.PDOMappable)

	// time sync consumers map into scet, not into a mirror record
	gps := db.ODs["gps"]
	assert.False(t, gps.Contains(0x5000+uint16(gps.NodeID)), "gps must not mirror itself")
}

func TestBuildBeaconAndPersist(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)

	require.NotEmpty(t, db.Beacon)
	assert.Equal(t, "satellite_id", db.Beacon[0].Name)
	for _, v := range db.Beacon {
		if v.DataType.DynamicLength() {
			assert.NotNil(t, v.Default, "dynamic beacon field %s needs a default for sizing", v.Name)
		}
	}

	require.NotEmpty(t, db.Persist)
	for _, v := range db.Persist {
		assert.False(t, v.DataType.DynamicLength() && v.Default == nil, "fram entry %s", v.Name)
	}
}

func TestBuildFWBase(t *testing.T) {
	db, err := Build(AuroraSat0_5)
	require.NoError(t, err)

	assert.Equal(t, FWBaseNodeID, db.FWBase.NodeID)
	_, err = db.FWBase.Entry("card", "uptime")
	assert.NoError(t, err)
}
