package odconfig

// ApplyOverlay merges a mission overlay into a merged card config in place.
// Overlay objects replace the name, type, access, and limits of matching
// indices (matching subindices for records and arrays); unmatched objects,
// subindexes, and PDOs are appended. Overlay TPDOs and RPDOs replace the
// mapping of the same PDO number.
func ApplyOverlay(config, overlay *CardConfig) {
	for _, obj := range overlay.Objects {
		overlayObject(config, obj)
	}

	for _, tpdo := range overlay.TPDOs {
		found := false
		for i := range config.TPDOs {
			if config.TPDOs[i].Num != tpdo.Num {
				continue
			}
			config.TPDOs[i].Fields = cloneRefs(tpdo.Fields)
			config.TPDOs[i].EventTimerMs = tpdo.EventTimerMs
			config.TPDOs[i].InhibitTimeMs = tpdo.InhibitTimeMs
			config.TPDOs[i].Sync = tpdo.Sync
			found = true
			break
		}
		if !found {
			config.TPDOs = append(config.TPDOs, clonePDOs([]PDO{tpdo})[0])
		}
	}

	for _, rpdo := range overlay.RPDOs {
		found := false
		for i := range config.RPDOs {
			if config.RPDOs[i].Num != rpdo.Num {
				continue
			}
			config.RPDOs[i].Fields = cloneRefs(rpdo.Fields)
			config.RPDOs[i].EventTimerMs = rpdo.EventTimerMs
			found = true
			break
		}
		if !found {
			config.RPDOs = append(config.RPDOs, clonePDOs([]PDO{rpdo})[0])
		}
	}

	config.TPDOsGen = append(config.TPDOsGen, overlay.TPDOsGen...)
	config.RPDOsGen = append(config.RPDOsGen, overlay.RPDOsGen...)
}

func overlayObject(config *CardConfig, obj IndexObject) {
	for i := range config.Objects {
		target := &config.Objects[i]
		if target.Index != obj.Index {
			continue
		}

		target.Name = obj.Name
		if obj.ObjectType == "variable" {
			target.DataType = obj.DataType
			target.AccessType = obj.AccessType
			target.LowLimit = obj.LowLimit
			target.HighLimit = obj.HighLimit
			return
		}

		for _, sub := range obj.Subindexes {
			found := false
			for j := range target.Subindexes {
				targetSub := &target.Subindexes[j]
				if targetSub.Subindex != sub.Subindex {
					continue
				}
				targetSub.Name = sub.Name
				targetSub.DataType = sub.DataType
				targetSub.AccessType = sub.AccessType
				targetSub.LowLimit = sub.LowLimit
				targetSub.HighLimit = sub.HighLimit
				found = true
				break
			}
			if !found {
				clone := sub
				clone.ConfigObject = sub.ConfigObject.clone()
				target.Subindexes = append(target.Subindexes, clone)
			}
		}
		return
	}

	config.Objects = append(config.Objects, obj.Clone())
}
