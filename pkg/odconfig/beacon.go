package odconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AX25Config is the framing metadata for the beacon's AX.25 header.
type AX25Config struct {
	DestCallsign string `yaml:"dest_callsign"`
	DestSSID     int    `yaml:"dest_ssid"`
	SrcCallsign  string `yaml:"src_callsign"`
	SrcSSID      int    `yaml:"src_ssid"`
	Control      int    `yaml:"control"`
	Command      bool   `yaml:"command"`
	Response     bool   `yaml:"response"`
	PID          int    `yaml:"pid"`
}

// BeaconConfig is a mission beacon definition YAML document. Fields
// reference entries of the C3 card's built OD, in frame order.
type BeaconConfig struct {
	Revision int        `yaml:"revision"`
	AX25     AX25Config `yaml:"ax25"`
	Fields   [][]string `yaml:"fields"`
}

// ParseBeaconConfig parses a beacon definition from YAML bytes.
func ParseBeaconConfig(data []byte) (*BeaconConfig, error) {
	var config BeaconConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing beacon config: %w", err)
	}
	if len(config.AX25.SrcCallsign) > 6 || len(config.AX25.DestCallsign) > 6 {
		return nil, fmt.Errorf("AX.25 callsigns are at most 6 characters")
	}
	return &config, nil
}

// LoadBeaconConfig loads and parses a beacon definition from a file.
func LoadBeaconConfig(path string) (*BeaconConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	config, err := ParseBeaconConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}
