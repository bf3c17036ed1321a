package odb

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/aurorasat/candb/pkg/odconfig"
)

//go:embed configs
var configFS embed.FS

// fwCommonName is the common config for stm32 firmware cards, swCommonName
// the one for octavo Linux cards.
const (
	fwCommonName = "fw_common"
	swCommonName = "sw_common"
)

func readConfigFile(path string) ([]byte, error) {
	data, err := configFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading embedded config %s: %w", path, err)
	}
	return data, nil
}

// StandardObjects loads the CiA 301 standard objects library.
func StandardObjects() ([]odconfig.IndexObject, error) {
	data, err := readConfigFile("configs/base/standard_objects.yaml")
	if err != nil {
		return nil, err
	}
	objs, err := odconfig.ParseObjects(data)
	if err != nil {
		return nil, fmt.Errorf("standard_objects.yaml: %w", err)
	}
	return objs, nil
}

// BaseConfig loads a base card config by name (e.g. "battery").
func BaseConfig(name string) (*odconfig.CardConfig, error) {
	data, err := readConfigFile("configs/base/" + name + ".yaml")
	if err != nil {
		return nil, err
	}
	config, err := odconfig.ParseCardConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s.yaml: %w", name, err)
	}
	return config, nil
}

// LoadBeacon loads a mission's beacon definition.
func LoadBeacon(m Mission) (*odconfig.BeaconConfig, error) {
	data, err := readConfigFile("configs/" + m.Filename() + "/beacon.yaml")
	if err != nil {
		return nil, err
	}
	config, err := odconfig.ParseBeaconConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s beacon.yaml: %w", m, err)
	}
	return config, nil
}

// LoadCards loads a mission's card roster.
func LoadCards(m Mission) (map[string]Card, error) {
	data, err := readConfigFile("configs/" + m.Filename() + "/cards.csv")
	if err != nil {
		return nil, err
	}
	cards, err := ParseCards(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s cards.csv: %w", m, err)
	}
	return cards, nil
}

// commonName returns the common config a card's processor class pulls in.
func commonName(card Card) string {
	switch card.Processor {
	case "octavo":
		return swCommonName
	case "stm32":
		return fwCommonName
	default:
		return ""
	}
}

// MergedConfig builds the effective config of one card for a mission:
// common config + card base config, with the mission overlay for the card's
// base applied on top if one exists. The C3 card keeps only its own TPDOs
// and is the only card with a FRAM list.
func MergedConfig(m Mission, name string, card Card) (*odconfig.CardConfig, error) {
	cardConfig, err := BaseConfig(card.Base)
	if err != nil {
		return nil, err
	}

	merged := &odconfig.CardConfig{}
	common := commonName(card)
	if common != "" {
		commonConfig, err := BaseConfig(common)
		if err != nil {
			return nil, err
		}
		merged.StdObjects = mergeStdObjects(commonConfig.StdObjects, cardConfig.StdObjects)
		merged.Objects = append(merged.Objects, commonConfig.Objects...)
		merged.RPDOs = append(merged.RPDOs, commonConfig.RPDOs...)
		merged.RPDOsGen = append(merged.RPDOsGen, commonConfig.RPDOsGen...)
		merged.TPDOsGen = append(merged.TPDOsGen, commonConfig.TPDOsGen...)
		if name != "c3" {
			merged.TPDOs = append(merged.TPDOs, commonConfig.TPDOs...)
		}
	} else {
		merged.StdObjects = mergeStdObjects(nil, cardConfig.StdObjects)
	}

	merged.Objects = append(merged.Objects, cardConfig.Objects...)
	merged.TPDOs = append(merged.TPDOs, cardConfig.TPDOs...)
	merged.RPDOs = append(merged.RPDOs, cardConfig.RPDOs...)
	merged.TPDOsGen = append(merged.TPDOsGen, cardConfig.TPDOsGen...)
	merged.RPDOsGen = append(merged.RPDOsGen, cardConfig.RPDOsGen...)
	merged.Fram = cardConfig.Fram

	overlayPath := "configs/" + m.Filename() + "/overlays/" + card.Base + ".yaml"
	data, err := configFS.ReadFile(overlayPath)
	if errors.Is(err, fs.ErrNotExist) {
		return merged, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", overlayPath, err)
	}
	overlay, err := odconfig.ParseCardConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", overlayPath, err)
	}
	merged = merged.Clone() // base configs stay pristine for other cards
	odconfig.ApplyOverlay(merged, overlay)
	return merged, nil
}

func mergeStdObjects(common, card []string) []string {
	seen := map[string]bool{}
	var merged []string
	for _, name := range append(append([]string{}, common...), card...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}
	return merged
}
