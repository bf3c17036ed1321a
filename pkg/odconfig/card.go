// Package odconfig provides the raw YAML schema types and loaders for candb
// card configs, standard object definitions, and beacon definitions, plus
// the overlay merge and referential validation that run before OD building.
package odconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigObject holds the fields shared by top-level objects, subindex
// entries, and generated-subindex templates.
type ConfigObject struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	DataType          string            `yaml:"data_type"`
	AccessType        string            `yaml:"access_type"`
	Default           any               `yaml:"default"`
	Length            int               `yaml:"length"` // octet_str byte length
	LowLimit          *int64            `yaml:"low_limit"`
	HighLimit         *int64            `yaml:"high_limit"`
	Unit              string            `yaml:"unit"`
	ScaleFactor       float64           `yaml:"scale_factor"`
	ValueDescriptions map[string]int64  `yaml:"value_descriptions"`
	BitDefinitions    map[string]BitDef `yaml:"bit_definitions"`
}

// IndexObject is a top-level OD object definition.
type IndexObject struct {
	ConfigObject `yaml:",inline"`

	Index              uint16              `yaml:"index"`
	ObjectType         string              `yaml:"object_type"` // variable, record, or array
	GenerateSubindexes *GenerateSubindexes `yaml:"generate_subindexes"`
	Subindexes         []SubindexObject    `yaml:"subindexes"`
}

// SubindexObject is a record or array member definition.
type SubindexObject struct {
	ConfigObject `yaml:",inline"`

	Subindex uint8 `yaml:"subindex"`
}

// GenerateSubindexes describes array members stamped out by the builder
// instead of listed one by one. Mode is "fixed_length" (Length members named
// name_1..name_N) or "node_ids" (one member per card, subindex = node id).
type GenerateSubindexes struct {
	ConfigObject `yaml:",inline"`

	Subindexes string `yaml:"subindexes"`
}

// PDO is a TPDO or RPDO definition. Fields reference merged config objects
// by one name (top-level variable) or two names (object, subindex entry).
type PDO struct {
	Num              int        `yaml:"num"`
	Fields           [][]string `yaml:"fields"`
	RTR              bool       `yaml:"rtr"`
	TransmissionType string     `yaml:"transmission_type"` // "event" (default) or "sync"
	Sync             int        `yaml:"sync"`
	SyncStartValue   int        `yaml:"sync_start_value"`
	EventTimerMs     int        `yaml:"event_timer_ms"`
	InhibitTimeMs    int        `yaml:"inhibit_time_ms"`
}

// GenPDO subscribes this card to another card's PDO data. In a tpdos_gen
// list RPDONum names the consumer card's RPDO this card feeds; in a
// rpdos_gen list TPDONum names the producer card's TPDO this card mirrors.
type GenPDO struct {
	Card    string `yaml:"card"`
	RPDONum int    `yaml:"rpdo_num"`
	TPDONum int    `yaml:"tpdo_num"`
}

// CardConfig is a single card config YAML document.
type CardConfig struct {
	StdObjects []string      `yaml:"std_objects"`
	Objects    []IndexObject `yaml:"objects"`
	TPDOs      []PDO         `yaml:"tpdos"`
	RPDOs      []PDO         `yaml:"rpdos"`
	TPDOsGen   []GenPDO      `yaml:"tpdos_gen"`
	RPDOsGen   []GenPDO      `yaml:"rpdos_gen"`
	Fram       [][]string    `yaml:"fram"`
}

// ParseCardConfig parses a card config from YAML bytes and applies field
// defaults (object_type variable, access_type rw, scale_factor 1).
func ParseCardConfig(data []byte) (*CardConfig, error) {
	var config CardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing card config: %w", err)
	}
	for i := range config.Objects {
		config.Objects[i].normalize()
	}
	for i := range config.TPDOs {
		config.TPDOs[i].normalize()
	}
	for i := range config.RPDOs {
		config.RPDOs[i].normalize()
	}
	return &config, nil
}

// LoadCardConfig loads and parses a card config from a file.
func LoadCardConfig(path string) (*CardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	config, err := ParseCardConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ParseObjects parses a bare list of object definitions, the format of the
// standard objects library file.
func ParseObjects(data []byte) ([]IndexObject, error) {
	var objects []IndexObject
	if err := yaml.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parsing objects: %w", err)
	}
	for i := range objects {
		objects[i].normalize()
	}
	return objects, nil
}

func (o *IndexObject) normalize() {
	if o.ObjectType == "" {
		o.ObjectType = "variable"
	}
	o.ConfigObject.normalize()
	if o.GenerateSubindexes != nil {
		o.GenerateSubindexes.ConfigObject.normalize()
	}
	for i := range o.Subindexes {
		o.Subindexes[i].ConfigObject.normalize()
	}
}

func (c *ConfigObject) normalize() {
	if c.AccessType == "" {
		c.AccessType = "rw"
	}
	if c.ScaleFactor == 0 {
		c.ScaleFactor = 1
	}
}

func (p *PDO) normalize() {
	if p.TransmissionType == "" {
		p.TransmissionType = "event"
	}
}

// Clone returns a deep copy of the config.
func (c *CardConfig) Clone() *CardConfig {
	clone := &CardConfig{
		StdObjects: append([]string(nil), c.StdObjects...),
		Objects:    make([]IndexObject, len(c.Objects)),
		TPDOs:      clonePDOs(c.TPDOs),
		RPDOs:      clonePDOs(c.RPDOs),
		TPDOsGen:   append([]GenPDO(nil), c.TPDOsGen...),
		RPDOsGen:   append([]GenPDO(nil), c.RPDOsGen...),
		Fram:       cloneRefs(c.Fram),
	}
	for i := range c.Objects {
		clone.Objects[i] = c.Objects[i].Clone()
	}
	return clone
}

// Clone returns a deep copy of the object definition.
func (o IndexObject) Clone() IndexObject {
	clone := o
	clone.ConfigObject = o.ConfigObject.clone()
	if o.GenerateSubindexes != nil {
		gen := *o.GenerateSubindexes
		gen.ConfigObject = o.GenerateSubindexes.ConfigObject.clone()
		clone.GenerateSubindexes = &gen
	}
	clone.Subindexes = make([]SubindexObject, len(o.Subindexes))
	for i, sub := range o.Subindexes {
		clone.Subindexes[i] = sub
		clone.Subindexes[i].ConfigObject = sub.ConfigObject.clone()
	}
	return clone
}

func (c ConfigObject) clone() ConfigObject {
	clone := c
	if c.LowLimit != nil {
		low := *c.LowLimit
		clone.LowLimit = &low
	}
	if c.HighLimit != nil {
		high := *c.HighLimit
		clone.HighLimit = &high
	}
	if c.ValueDescriptions != nil {
		clone.ValueDescriptions = make(map[string]int64, len(c.ValueDescriptions))
		for k, v := range c.ValueDescriptions {
			clone.ValueDescriptions[k] = v
		}
	}
	if c.BitDefinitions != nil {
		clone.BitDefinitions = make(map[string]BitDef, len(c.BitDefinitions))
		for k, v := range c.BitDefinitions {
			clone.BitDefinitions[k] = append(BitDef(nil), v...)
		}
	}
	return clone
}

func clonePDOs(pdos []PDO) []PDO {
	clone := make([]PDO, len(pdos))
	for i, pdo := range pdos {
		clone[i] = pdo
		clone[i].Fields = cloneRefs(pdo.Fields)
	}
	return clone
}

func cloneRefs(refs [][]string) [][]string {
	clone := make([][]string, len(refs))
	for i, ref := range refs {
		clone[i] = append([]string(nil), ref...)
	}
	return clone
}
