package odb

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/aurorasat/candb/pkg/od"
	"github.com/aurorasat/candb/pkg/odconfig"
)

// makeVar builds an OD entry from a config entry definition.
func makeVar(entry odconfig.ConfigObject, index uint16, subindex uint8) (*od.Variable, error) {
	dt, err := od.ParseDataType(entry.DataType)
	if err != nil {
		return nil, fmt.Errorf("0x%04X sub 0x%X (%s): %w", index, subindex, entry.Name, err)
	}
	access, err := od.ParseAccess(entry.AccessType)
	if err != nil {
		return nil, fmt.Errorf("0x%04X sub 0x%X (%s): %w", index, subindex, entry.Name, err)
	}

	v := &od.Variable{
		Index:       index,
		Subindex:    subindex,
		Name:        entry.Name,
		Description: entry.Description,
		DataType:    dt,
		Access:      access,
		Unit:        entry.Unit,
		Factor:      entry.ScaleFactor,
		LowLimit:    entry.LowLimit,
		HighLimit:   entry.HighLimit,
		PDOMappable: !dt.DynamicLength(),
	}

	if len(entry.BitDefinitions) > 0 {
		v.BitDefinitions = map[string][]int{}
		for name, bits := range entry.BitDefinitions {
			v.BitDefinitions[name] = bits.Sorted()
		}
	}
	if len(entry.ValueDescriptions) > 0 {
		v.ValueDescriptions = map[string]int64{}
		var min, max int64
		first := true
		for name, value := range entry.ValueDescriptions {
			v.ValueDescriptions[name] = value
			if first || value < min {
				min = value
			}
			if first || value > max {
				max = value
			}
			first = false
		}
		// enums get implicit limits from their values
		if v.LowLimit == nil {
			v.LowLimit = &min
		}
		if v.HighLimit == nil {
			v.HighLimit = &max
		}
	}

	v.Default, err = normalizeDefault(entry, dt)
	if err != nil {
		return nil, fmt.Errorf("0x%04X sub 0x%X (%s): %w", index, subindex, entry.Name, err)
	}
	return v, nil
}

// normalizeDefault converts a raw YAML default into the typed value the
// Variable contract promises.
func normalizeDefault(entry odconfig.ConfigObject, dt od.DataType) (any, error) {
	raw := entry.Default

	if dt == od.OctetString {
		switch d := raw.(type) {
		case nil:
			return make([]byte, entry.Length), nil
		case string:
			b, err := hex.DecodeString(strings.ReplaceAll(d, " ", ""))
			if err != nil {
				return nil, fmt.Errorf("invalid octet_str default %q: %w", d, err)
			}
			return b, nil
		case []byte:
			return d, nil
		default:
			return nil, fmt.Errorf("invalid octet_str default %T", raw)
		}
	}
	if raw == nil {
		return dt.Zero(), nil
	}

	switch dt {
	case od.Boolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("invalid bool default %v", raw)
		}
		return b, nil
	case od.VisibleString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("invalid str default %v", raw)
		}
		return s, nil
	case od.Real32, od.Real64:
		switch d := raw.(type) {
		case float64:
			return d, nil
		case int:
			return float64(d), nil
		default:
			return nil, fmt.Errorf("invalid float default %v", raw)
		}
	case od.Domain:
		return nil, nil
	}

	// integer types, possibly written as "0x..." or with a $NODE_ID term
	var value int64
	switch d := raw.(type) {
	case int:
		value = int64(d)
	case int64:
		value = d
	case uint64:
		return d, nil
	case string:
		s := d
		if before, after, found := strings.Cut(s, "+"); found {
			// node ids are applied per card by the builder, not here
			if strings.TrimSpace(before) == "$NODE_ID" {
				s = after
			} else if strings.TrimSpace(after) == "$NODE_ID" {
				s = before
			}
		}
		s = strings.TrimSpace(s)
		parsed, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer default %q", d)
		}
		value = parsed
	default:
		return nil, fmt.Errorf("invalid integer default %T", raw)
	}

	if dt.Signed() {
		return value, nil
	}
	return uint64(value), nil
}

// makeRec builds a record object.
func makeRec(obj odconfig.IndexObject) (*od.Record, error) {
	rec := od.NewRecord(obj.Name, obj.Index)
	rec.Description = obj.Description
	for _, sub := range obj.Subindexes {
		v, err := makeVar(sub.ConfigObject, obj.Index, sub.Subindex)
		if err != nil {
			return nil, err
		}
		if err := rec.AddMember(v); err != nil {
			return nil, fmt.Errorf("record %s: %w", obj.Name, err)
		}
	}
	return rec, nil
}

// makeArr builds an array object, stamping out generated subindexes when
// the config asks for them.
func makeArr(obj odconfig.IndexObject, nodeIDs map[string]uint8) (*od.Array, error) {
	arr := od.NewArray(obj.Name, obj.Index)
	arr.Description = obj.Description

	gen := obj.GenerateSubindexes
	if gen == nil {
		for _, sub := range obj.Subindexes {
			v, err := makeVar(sub.ConfigObject, obj.Index, sub.Subindex)
			if err != nil {
				return nil, err
			}
			if err := arr.AddMember(v); err != nil {
				return nil, fmt.Errorf("array %s: %w", obj.Name, err)
			}
		}
		return arr, nil
	}

	type member struct {
		subindex uint8
		name     string
	}
	var members []member
	switch gen.Subindexes {
	case "fixed_length":
		for i := 1; i <= gen.Length; i++ {
			members = append(members, member{uint8(i), fmt.Sprintf("%s_%d", gen.Name, i)})
		}
	case "node_ids":
		for _, name := range sortedByID(nodeIDs) {
			if nodeIDs[name] == 0 {
				continue // node id 0 means not on the CAN bus
			}
			members = append(members, member{nodeIDs[name], name})
		}
	default:
		return nil, fmt.Errorf("array %s: unknown generate_subindexes mode %q", obj.Name, gen.Subindexes)
	}

	template := gen.ConfigObject
	for _, m := range members {
		entry := template
		entry.Name = m.name
		v, err := makeVar(entry, obj.Index, m.subindex)
		if err != nil {
			return nil, err
		}
		if err := arr.AddMember(v); err != nil {
			return nil, fmt.Errorf("array %s: %w", obj.Name, err)
		}
	}
	return arr, nil
}

func sortedByID(nodeIDs map[string]uint8) []string {
	names := make([]string, 0, len(nodeIDs))
	for name := range nodeIDs {
		names = append(names, name)
	}
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if nodeIDs[names[j]] < nodeIDs[names[i]] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

// addObjects fills an OD with all configured objects.
func addObjects(dict *od.ObjectDictionary, objects []odconfig.IndexObject, nodeIDs map[string]uint8) error {
	for _, obj := range objects {
		var built od.Object
		var err error
		switch obj.ObjectType {
		case "variable":
			built, err = makeVar(obj.ConfigObject, obj.Index, 0)
		case "record":
			built, err = makeRec(obj)
		case "array":
			built, err = makeArr(obj, nodeIDs)
		default:
			err = fmt.Errorf("0x%04X (%s): unknown object type %q", obj.Index, obj.Name, obj.ObjectType)
		}
		if err != nil {
			return err
		}
		if err := dict.Add(built); err != nil {
			return fmt.Errorf("object %s: %w", obj.Name, err)
		}
	}
	return nil
}

// buildStdObjects builds the standard objects library keyed by name.
func buildStdObjects(defs []odconfig.IndexObject, nodeIDs map[string]uint8) (map[string]od.Object, error) {
	objs := map[string]od.Object{}
	for _, def := range defs {
		var built od.Object
		var err error
		switch def.ObjectType {
		case "variable":
			built, err = makeVar(def.ConfigObject, def.Index, 0)
		case "record":
			built, err = makeRec(def)
		case "array":
			built, err = makeArr(def, nodeIDs)
		default:
			err = fmt.Errorf("standard object %s: unknown object type %q", def.Name, def.ObjectType)
		}
		if err != nil {
			return nil, err
		}
		objs[def.Name] = built
	}
	return objs, nil
}

// cloneObject deep copies a standard object so per-card default tweaks do
// not leak between ODs.
func cloneObject(obj od.Object) od.Object {
	switch o := obj.(type) {
	case *od.Variable:
		return cloneVar(o)
	case *od.Record:
		rec := od.NewRecord(o.Name, o.Index)
		rec.Description = o.Description
		for _, sub := range o.Subs() {
			if sub.Subindex == 0 {
				rec.Sub(0).Default = sub.Default
				continue
			}
			if err := rec.Add(cloneVar(sub)); err != nil {
				panic(err) // source record was consistent
			}
		}
		return rec
	case *od.Array:
		arr := od.NewArray(o.Name, o.Index)
		arr.Description = o.Description
		for _, sub := range o.Subs() {
			if sub.Subindex == 0 {
				arr.Sub(0).Default = sub.Default
				continue
			}
			if err := arr.Add(cloneVar(sub)); err != nil {
				panic(err)
			}
		}
		return arr
	}
	return obj
}

func cloneVar(v *od.Variable) *od.Variable {
	clone := *v
	if v.BitDefinitions != nil {
		clone.BitDefinitions = map[string][]int{}
		for name, bits := range v.BitDefinitions {
			clone.BitDefinitions[name] = append([]int(nil), bits...)
		}
	}
	if v.ValueDescriptions != nil {
		clone.ValueDescriptions = map[string]int64{}
		for name, value := range v.ValueDescriptions {
			clone.ValueDescriptions[name] = value
		}
	}
	if b, ok := v.Default.([]byte); ok {
		clone.Default = append([]byte(nil), b...)
	}
	if v.LowLimit != nil {
		low := *v.LowLimit
		clone.LowLimit = &low
	}
	if v.HighLimit != nil {
		high := *v.HighLimit
		clone.HighLimit = &high
	}
	return &clone
}
