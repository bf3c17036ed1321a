package odb

import (
	"fmt"
	"sort"

	"github.com/aurorasat/candb/pkg/od"
	"github.com/aurorasat/candb/pkg/odconfig"
)

// FWBaseNodeID is the placeholder node ID used by the firmware base OD.
// Firmware images patch in the real node ID at flash time.
const FWBaseNodeID uint8 = 0x7C

const (
	vendorName        = "AuroraSat"
	canBitrate        = 1_000_000 // bps
	emcyCobIDBase     = 0x80
	deviceGranularity = 8
)

// Database holds every object dictionary for one mission, plus the resolved
// C3 beacon and FRAM persistence lists.
type Database struct {
	Mission Mission
	Cards   map[string]Card

	// ODs maps card name to its object dictionary. Card names are the
	// cards.csv names, e.g. "c3", "battery_1", "gps".
	ODs map[string]*od.ObjectDictionary

	// Beacon is the ordered list of C3 OD entries sent in the beacon,
	// after the AX.25 header and before the CRC32.
	Beacon       []*od.Variable
	BeaconConfig *odconfig.BeaconConfig

	// Persist is the list of C3 OD entries saved to FRAM.
	Persist []*od.Variable

	// FWBase is the object dictionary shared by all firmware cards before
	// card-specific objects are added.
	FWBase *od.ObjectDictionary
}

func newDeviceInfo(productName string) od.DeviceInfo {
	return od.DeviceInfo{
		VendorName:  vendorName,
		ProductName: productName,
		BaudRates:   []int{1000}, // kbps
		Granularity: deviceGranularity,
	}
}

// Build loads every card config for a mission and assembles the full
// object dictionary database from the embedded configs.
func Build(m Mission) (*Database, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mission %d", int(m))
	}

	cards, err := LoadCards(m)
	if err != nil {
		return nil, err
	}
	beacon, err := LoadBeacon(m)
	if err != nil {
		return nil, err
	}

	configs := map[string]*odconfig.CardConfig{}
	for name, card := range cards {
		if card.Base == "" {
			continue
		}
		config, err := MergedConfig(m, name, card)
		if err != nil {
			return nil, err
		}
		configs[name] = config
	}

	nodeIDs := map[string]uint8{}
	for name := range configs {
		nodeIDs[name] = cards[name].NodeID
	}
	nodeIDs["c3"] = 0x1

	stdDefs, err := StandardObjects()
	if err != nil {
		return nil, err
	}
	stdObjs, err := buildStdObjects(stdDefs, nodeIDs)
	if err != nil {
		return nil, err
	}

	db := &Database{
		Mission:      m,
		Cards:        cards,
		ODs:          map[string]*od.ObjectDictionary{},
		BeaconConfig: beacon,
	}

	for name, config := range configs {
		dict, err := buildCardOD(m, name, cards[name], config, nodeIDs, stdObjs, beacon)
		if err != nil {
			return nil, fmt.Errorf("building %s OD: %w", name, err)
		}
		db.ODs[name] = dict
	}

	if err := db.addMirroredPDOs(configs); err != nil {
		return nil, err
	}

	c3OD, ok := db.ODs["c3"]
	if !ok {
		return nil, fmt.Errorf("mission %s has no c3 card", m)
	}
	db.Beacon, err = resolveRefs(c3OD, beacon.Fields)
	if err != nil {
		return nil, fmt.Errorf("resolving beacon fields: %w", err)
	}
	db.Persist, err = resolveRefs(c3OD, configs["c3"].Fram)
	if err != nil {
		return nil, fmt.Errorf("resolving fram fields: %w", err)
	}

	db.FWBase, err = buildFWBaseOD(m, stdDefs)
	if err != nil {
		return nil, fmt.Errorf("building firmware base OD: %w", err)
	}

	return db, nil
}

func buildCardOD(m Mission, name string, card Card, config *odconfig.CardConfig,
	nodeIDs map[string]uint8, stdObjs map[string]od.Object,
	beacon *odconfig.BeaconConfig) (*od.ObjectDictionary, error) {

	dict := od.New()
	dict.NodeID = card.NodeID
	dict.Bitrate = canBitrate
	dict.DeviceInfo = newDeviceInfo(card.NiceName)

	if err := addObjects(dict, config.Objects, nodeIDs); err != nil {
		return nil, err
	}

	for _, objName := range config.StdObjects {
		std, ok := stdObjs[objName]
		if !ok {
			return nil, fmt.Errorf("unknown standard object %q", objName)
		}
		if err := dict.Add(cloneObject(std)); err != nil {
			return nil, err
		}
		if objName == "cob_id_emergency_message" {
			v, err := dict.Entry("cob_id_emergency_message")
			if err != nil {
				return nil, err
			}
			v.Default = uint64(emcyCobIDBase + uint32(card.NodeID))
		}
	}

	if err := addPDOs(dict, config, "tpdo"); err != nil {
		return nil, err
	}
	if err := addPDOs(dict, config, "rpdo"); err != nil {
		return nil, err
	}

	if err := setCommonDefaults(dict, m); err != nil {
		return nil, err
	}

	if name == "c3" {
		if err := setBeaconDefaults(dict, beacon); err != nil {
			return nil, err
		}
		flightMode, err := dict.Entry("flight_mode")
		if err != nil {
			return nil, err
		}
		flightMode.Access = od.AccessRO
	}

	return dict, nil
}

// setCommonDefaults stamps the configs version and the mission ID into the
// standard objects every card carries.
func setCommonDefaults(dict *od.ObjectDictionary, m Mission) error {
	version, err := dict.Entry("versions", "configs_version")
	if err != nil {
		return err
	}
	version.Default = Version

	satID, err := dict.Entry("satellite_id")
	if err != nil {
		return err
	}
	satID.Default = uint64(int(m))
	if satID.ValueDescriptions == nil {
		satID.ValueDescriptions = map[string]int64{}
	}
	for _, mission := range Missions() {
		satID.ValueDescriptions[mission.Filename()] = int64(int(mission))
	}
	return nil
}

func setBeaconDefaults(dict *od.ObjectDictionary, beacon *odconfig.BeaconConfig) error {
	defaults := map[string]any{
		"revision":      uint64(beacon.Revision),
		"dest_callsign": beacon.AX25.DestCallsign,
		"dest_ssid":     uint64(beacon.AX25.DestSSID),
		"src_callsign":  beacon.AX25.SrcCallsign,
		"src_ssid":      uint64(beacon.AX25.SrcSSID),
		"control":       uint64(beacon.AX25.Control),
		"command":       beacon.AX25.Command,
		"response":      beacon.AX25.Response,
		"pid":           uint64(beacon.AX25.PID),
	}
	for sub, value := range defaults {
		v, err := dict.Entry("beacon", sub)
		if err != nil {
			return err
		}
		v.Default = value
	}
	return nil
}

// addMirroredPDOs wires cross-card PDO consumption after every card's own OD
// exists. The C3 consumes every TPDO of every other card; other cards consume
// only what their rpdos_gen and the producers' tpdos_gen lists name.
func (db *Database) addMirroredPDOs(configs map[string]*odconfig.CardConfig) error {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		config := configs[name]
		for _, gen := range config.TPDOsGen {
			target, ok := db.ODs[gen.Card]
			if !ok {
				return fmt.Errorf("%s tpdos_gen: unknown card %q", name, gen.Card)
			}
			if err := addMirroredPDO(db.ODs[name], gen.RPDONum, gen.Card, target, "tpdo"); err != nil {
				return fmt.Errorf("%s tpdos_gen: %w", name, err)
			}
		}

		if name == "c3" {
			for _, other := range names {
				if other == "c3" {
					continue
				}
				otherOD := db.ODs[other]
				for num := 1; num <= 16; num++ {
					if !otherOD.Contains(TPDOCommStart + uint16(num-1)) {
						continue
					}
					if err := addMirroredPDO(db.ODs[name], num, other, otherOD, "rpdo"); err != nil {
						return fmt.Errorf("c3 mirroring %s tpdo %d: %w", other, num, err)
					}
				}
			}
			continue
		}

		for _, gen := range config.RPDOsGen {
			source, ok := db.ODs[gen.Card]
			if !ok {
				return fmt.Errorf("%s rpdos_gen: unknown card %q", name, gen.Card)
			}
			if err := addMirroredPDO(db.ODs[name], gen.TPDONum, gen.Card, source, "rpdo"); err != nil {
				return fmt.Errorf("%s rpdos_gen: %w", name, err)
			}
		}
	}
	return nil
}

// resolveRefs maps config field references to the OD entries they name.
func resolveRefs(dict *od.ObjectDictionary, refs [][]string) ([]*od.Variable, error) {
	vars := make([]*od.Variable, 0, len(refs))
	for _, ref := range refs {
		v, err := dict.Entry(ref...)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// buildFWBaseOD builds the object dictionary every STM32 firmware image
// starts from: fw_common objects only, node ID 0x7C.
func buildFWBaseOD(m Mission, stdDefs []odconfig.IndexObject) (*od.ObjectDictionary, error) {
	config, err := BaseConfig(fwCommonName)
	if err != nil {
		return nil, err
	}

	dict := od.New()
	dict.NodeID = FWBaseNodeID
	dict.Bitrate = canBitrate
	dict.DeviceInfo = newDeviceInfo("Firmware Base")

	if err := addObjects(dict, config.Objects, nil); err != nil {
		return nil, err
	}

	stdObjs, err := buildStdObjects(stdDefs, nil)
	if err != nil {
		return nil, err
	}
	for _, objName := range config.StdObjects {
		std, ok := stdObjs[objName]
		if !ok {
			return nil, fmt.Errorf("unknown standard object %q", objName)
		}
		if err := dict.Add(cloneObject(std)); err != nil {
			return nil, err
		}
		if objName == "cob_id_emergency_message" {
			v, err := dict.Entry("cob_id_emergency_message")
			if err != nil {
				return nil, err
			}
			v.Default = uint64(emcyCobIDBase + uint32(FWBaseNodeID))
		}
	}

	if err := addPDOs(dict, config, "tpdo"); err != nil {
		return nil, err
	}
	if err := addPDOs(dict, config, "rpdo"); err != nil {
		return nil, err
	}

	if err := setCommonDefaults(dict, m); err != nil {
		return nil, err
	}

	return dict, nil
}
