package odb

import (
	"fmt"

	"github.com/aurorasat/candb/pkg/od"
	"github.com/aurorasat/candb/pkg/odconfig"
)

// CANopen index blocks for PDO communication and mapping parameters.
const (
	RPDOCommStart uint16 = 0x1400
	RPDOMapStart  uint16 = 0x1600
	TPDOCommStart uint16 = 0x1800
	TPDOMapStart  uint16 = 0x1A00
)

// Index blocks holding other cards' PDO data mirrored into this card's OD.
const (
	MirrorDataStart    uint16 = 0x5000
	MirrorControlStart uint16 = 0x5100
)

// timeSyncCobID is the COB-ID of the C3's time sync TPDO. The GPS card's
// TPDO 16 transmits on it so every card can consume time from either source.
const timeSyncCobID = 0x181

// scetIndex is the standard scet (spacecraft elapsed time) object every card
// carries. Time sync consumers map the received time straight into it.
const scetIndex uint16 = 0x2010

// pdoCobID computes a card's default PDO COB-ID: four PDOs per priority
// quadrant starting at 0x180.
func pdoCobID(nodeID uint8, num int) uint64 {
	return uint64(nodeID) + uint64((num-1)%4)*0x100 + uint64((num-1)/4) + 0x180
}

func constVar(index uint16, subindex uint8, name string, dt od.DataType, def uint64) *od.Variable {
	return &od.Variable{
		Index:       index,
		Subindex:    subindex,
		Name:        name,
		DataType:    dt,
		Access:      od.AccessConst,
		Default:     def,
		Factor:      1,
		PDOMappable: false,
	}
}

// addPDOs adds the communication and mapping parameter records for a card's
// own PDOs.
func addPDOs(dict *od.ObjectDictionary, config *odconfig.CardConfig, kind string) error {
	var pdos []odconfig.PDO
	var commStart, mapStart uint16
	switch kind {
	case "tpdo":
		pdos = config.TPDOs
		commStart, mapStart = TPDOCommStart, TPDOMapStart
	case "rpdo":
		pdos = config.RPDOs
		commStart, mapStart = RPDOCommStart, RPDOMapStart
	default:
		return fmt.Errorf("invalid pdo kind %q", kind)
	}

	for _, pdo := range pdos {
		if kind == "tpdo" {
			dict.DeviceInfo.NrOfTPDO++
		} else {
			dict.DeviceInfo.NrOfRPDO++
		}

		commIndex := commStart + uint16(pdo.Num-1)
		mapIndex := mapStart + uint16(pdo.Num-1)
		mapRec := od.NewRecord(fmt.Sprintf("%s_%d_mapping_parameters", kind, pdo.Num), mapIndex)
		commRec := od.NewRecord(fmt.Sprintf("%s_%d_communication_parameters", kind, pdo.Num), commIndex)
		if err := dict.Add(mapRec); err != nil {
			return err
		}
		if err := dict.Add(commRec); err != nil {
			return err
		}

		for i, ref := range pdo.Fields {
			mapped, err := dict.Entry(ref...)
			if err != nil {
				return fmt.Errorf("%s %d: %w", kind, pdo.Num, err)
			}
			if !mapped.PDOMappable {
				return fmt.Errorf("%s %d: field %v is not PDO mappable", kind, pdo.Num, ref)
			}
			value := uint64(mapped.Index)<<16 | uint64(mapped.Subindex)<<8 |
				uint64(mapped.DataType.BitSize())
			entry := constVar(mapIndex, uint8(i+1), fmt.Sprintf("mapping_object_%d", i+1),
				od.Unsigned32, value)
			if err := mapRec.Add(entry); err != nil {
				return fmt.Errorf("%s %d: %w", kind, pdo.Num, err)
			}
		}
		mapRec.Sub(0).Default = uint64(len(pdo.Fields))

		cobID := pdoCobID(dict.NodeID, pdo.Num)
		if kind == "tpdo" && pdo.Num == 16 && dict.DeviceInfo.ProductName == "GPS" {
			// the GPS time sync TPDO doubles as the C3's TPDO 1
			cobID = timeSyncCobID
		}
		if kind == "tpdo" && pdo.RTR {
			cobID |= 1 << 30 // no RTR allowed
		}
		if err := commRec.Add(constVar(commIndex, 0x1, "cob_id", od.Unsigned32, cobID)); err != nil {
			return err
		}

		transmission := uint64(254) // event driven
		if pdo.TransmissionType == "sync" {
			transmission = uint64(pdo.Sync)
		}
		if err := commRec.Add(constVar(commIndex, 0x2, "transmission_type", od.Unsigned8, transmission)); err != nil {
			return err
		}

		if kind == "tpdo" {
			if err := commRec.Add(constVar(commIndex, 0x3, "inhibit_time", od.Unsigned16,
				uint64(pdo.InhibitTimeMs))); err != nil {
				return err
			}
		}

		eventTimer := constVar(commIndex, 0x5, "event_timer", od.Unsigned16, uint64(pdo.EventTimerMs))
		eventTimer.Access = od.AccessRW
		if err := commRec.Add(eventTimer); err != nil {
			return err
		}

		if kind == "tpdo" {
			if err := commRec.Add(constVar(commIndex, 0x6, "sync_start_value", od.Unsigned8,
				uint64(pdo.SyncStartValue))); err != nil {
				return err
			}
		}
		commRec.Sub(0).Default = uint64(0x6)
	}
	return nil
}

// addMirroredPDO wires one card's PDO into another card's OD. For kind
// "rpdo" the dict card consumes nodeName's TPDO pdoNum, mirroring its data
// into a record in the 0x5000 block. For kind "tpdo" the dict card produces
// the data nodeName consumes via its RPDO pdoNum, with the writable control
// record in the 0x5100 block.
func addMirroredPDO(dict *od.ObjectDictionary, pdoNum int, nodeName string,
	nodeOD *od.ObjectDictionary, kind string) error {

	var peerCommIndex, peerMapIndex, commStart, mapStart, mirrorBase uint16
	var mirrorName string
	switch kind {
	case "tpdo":
		peerCommIndex = RPDOCommStart + uint16(pdoNum-1)
		peerMapIndex = RPDOMapStart + uint16(pdoNum-1)
		commStart, mapStart = TPDOCommStart, TPDOMapStart
		mirrorBase = MirrorControlStart
		mirrorName = nodeName + "_control"
	case "rpdo":
		peerCommIndex = TPDOCommStart + uint16(pdoNum-1)
		peerMapIndex = TPDOMapStart + uint16(pdoNum-1)
		commStart, mapStart = RPDOCommStart, RPDOMapStart
		mirrorBase = MirrorDataStart
		mirrorName = nodeName
	default:
		return fmt.Errorf("invalid pdo kind %q", kind)
	}

	peerComm, ok := nodeOD.Object(peerCommIndex).(*od.Record)
	if !ok {
		return fmt.Errorf("%s has no %s %d", nodeName, kind, pdoNum)
	}
	peerCobID, err := peerComm.Sub(0x1).DefaultUint64()
	if err != nil {
		return err
	}

	// time sync consumers map straight into their own scet object
	timeSync := kind == "rpdo" && peerCobID == timeSyncCobID

	var mirrorRec *od.Record
	mirrorIndex := mirrorBase + uint16(nodeOD.NodeID)
	if timeSync {
		mirrorIndex = scetIndex
	} else if existing, ok := dict.Object(mirrorIndex).(*od.Record); ok {
		mirrorRec = existing
	} else {
		mirrorRec = od.NewRecord(mirrorName, mirrorIndex)
		mirrorRec.Description = fmt.Sprintf("%s %s %d mapped data", nodeName, kind, pdoNum)
		if err := dict.Add(mirrorRec); err != nil {
			return err
		}
	}

	if kind == "rpdo" {
		dict.DeviceInfo.NrOfRPDO++
	} else {
		dict.DeviceInfo.NrOfTPDO++
	}

	// mirrored PDOs live past the card's own 16 PDO slots
	num := 1
	for _, index := range dict.Indices() {
		if index >= commStart+16 && index < mapStart {
			num++
		}
	}

	commIndex := commStart + uint16(num+16-1)
	commRec := od.NewRecord(fmt.Sprintf("%s_%s_%d_communication_parameters", nodeName, kind, pdoNum), commIndex)
	if err := dict.Add(commRec); err != nil {
		return err
	}
	if err := commRec.Add(constVar(commIndex, 0x1, "cob_id", od.Unsigned32, peerCobID)); err != nil {
		return err
	}
	if err := commRec.Add(constVar(commIndex, 0x2, "transmission_type", od.Unsigned8, 254)); err != nil {
		return err
	}
	if err := commRec.Add(constVar(commIndex, 0x5, "event_timer", od.Unsigned16, 0)); err != nil {
		return err
	}
	commRec.Sub(0).Default = uint64(0x5)

	mapIndex := mapStart + uint16(num+16-1)
	mapRec := od.NewRecord(fmt.Sprintf("%s_%s_%d_mapping_parameters", nodeName, kind, pdoNum), mapIndex)
	if err := dict.Add(mapRec); err != nil {
		return err
	}

	peerMap, ok := nodeOD.Object(peerMapIndex).(*od.Record)
	if !ok {
		return fmt.Errorf("%s has no mapping parameters for %s %d", nodeName, kind, pdoNum)
	}

	for _, peerEntry := range peerMap.Subs() {
		if peerEntry.Subindex == 0 {
			continue
		}

		mirrorSubindex := uint8(0)
		if !timeSync {
			raw, err := peerEntry.DefaultUint64()
			if err != nil {
				return err
			}
			peerIndex := uint16(raw >> 16 & 0xFFFF)
			peerSubindex := uint8(raw >> 8 & 0xFF)
			peerVar, err := nodeOD.EntryAt(peerIndex, peerSubindex)
			if err != nil {
				return fmt.Errorf("%s %s %d: %w", nodeName, kind, pdoNum, err)
			}
			name := peerVar.Name
			if parent := nodeOD.Object(peerIndex); parent != nil {
				if _, isVar := parent.(*od.Variable); !isVar {
					name = parent.ObjName() + "_" + peerVar.Name
				}
			}

			sub0, err := mirrorRec.Sub(0).DefaultUint64()
			if err != nil {
				return err
			}
			mirrorSubindex = uint8(sub0) + 1

			mirrored := cloneVar(peerVar)
			mirrored.Index = mirrorIndex
			mirrored.Subindex = mirrorSubindex
			mirrored.Name = name
			mirrored.Access = od.AccessRW
			mirrored.PDOMappable = true
			if err := mirrorRec.Add(mirrored); err != nil {
				return fmt.Errorf("%s %s %d: %w", nodeName, kind, pdoNum, err)
			}
			mirrorRec.Sub(0).Default = uint64(mirrorSubindex)
		}

		mapped, err := dict.EntryAt(mirrorIndex, mirrorSubindex)
		if err != nil {
			return fmt.Errorf("%s %s %d: %w", nodeName, kind, pdoNum, err)
		}

		sub0, err := mapRec.Sub(0).DefaultUint64()
		if err != nil {
			return err
		}
		mapSubindex := uint8(sub0) + 1
		value := uint64(mirrorIndex)<<16 | uint64(mirrorSubindex)<<8 |
			uint64(mapped.DataType.BitSize())
		if err := mapRec.Add(constVar(mapIndex, mapSubindex,
			fmt.Sprintf("mapping_object_%d", mapSubindex), od.Unsigned32, value)); err != nil {
			return err
		}
		mapRec.Sub(0).Default = uint64(mapSubindex)
	}

	return nil
}
