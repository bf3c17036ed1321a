package gen

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/aurorasat/candb/pkg/od"
)

// GoFile renders a Go source file for a Linux card daemon: entry
// descriptors for every card object, typed constants for enums, bit masks
// for bit definitions, and the card's TPDO slots. The output is formatted
// with goimports.
func GoFile(nodeName string, dict *od.ObjectDictionary, pkg string) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "// Code generated by candb for %s. DO NOT EDIT.\n\n", nodeName)
	fmt.Fprintf(&b, "package %s\n\n", pkg)

	b.WriteString("// Entry is one object dictionary entry the daemon reads or writes.\n")
	b.WriteString("type Entry struct {\n")
	b.WriteString("\tIndex    uint16\n")
	b.WriteString("\tSubindex uint8\n")
	b.WriteString("\tDataType string\n")
	b.WriteString("}\n\n")

	type namedVar struct {
		name string
		v    *od.Variable
	}
	var entries []namedVar
	var tpdos []int

	for _, index := range dict.Indices() {
		if index >= 0x1800 && index < 0x1A00 {
			tpdos = append(tpdos, int(index-0x1800)+1)
		}
		if index < 0x4000 {
			continue
		}
		obj := dict.Object(index)
		switch o := obj.(type) {
		case *od.Variable:
			entries = append(entries, namedVar{o.Name, o})
		default:
			for _, sub := range groupSubs(obj) {
				if sub.Subindex == 0 {
					continue
				}
				entries = append(entries, namedVar{obj.ObjName() + "_" + sub.Name, sub})
			}
		}
	}

	for _, e := range entries {
		if len(e.v.ValueDescriptions) == 0 {
			continue
		}
		typeName := snakeToCamel(e.name)
		goType := goIntType(e.v.DataType)
		fmt.Fprintf(&b, "// %s values of %s.\n", typeName, e.name)
		fmt.Fprintf(&b, "type %s %s\n\nconst (\n", typeName, goType)

		type enumEntry struct {
			name  string
			value int64
		}
		values := make([]enumEntry, 0, len(e.v.ValueDescriptions))
		for n, val := range e.v.ValueDescriptions {
			values = append(values, enumEntry{n, val})
		}
		sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })
		for _, val := range values {
			fmt.Fprintf(&b, "\t%s%s %s = %d\n", typeName, snakeToCamel(val.name), typeName, val.value)
		}
		b.WriteString(")\n\n")
	}

	for _, e := range entries {
		if len(e.v.BitDefinitions) == 0 {
			continue
		}
		typeName := snakeToCamel(e.name)
		goType := goIntType(e.v.DataType)
		names := make([]string, 0, len(e.v.BitDefinitions))
		for n := range e.v.BitDefinitions {
			names = append(names, n)
		}
		sort.Slice(names, func(i, j int) bool {
			return minBit(e.v.BitDefinitions[names[i]]) < minBit(e.v.BitDefinitions[names[j]])
		})

		fmt.Fprintf(&b, "// Bit masks of %s.\nconst (\n", e.name)
		for _, n := range names {
			var mask uint64
			for _, bit := range e.v.BitDefinitions[n] {
				mask |= 1 << uint(bit)
			}
			fmt.Fprintf(&b, "\t%s%s %s = 0x%X\n", typeName, snakeToCamel(strings.ToLower(n)), goType, mask)
		}
		b.WriteString(")\n\n")
	}

	fmt.Fprintf(&b, "// Entries are %s's card objects, including data mirrored from other cards.\n", nodeName)
	b.WriteString("var Entries = map[string]Entry{\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\t%q: {Index: 0x%04X, Subindex: 0x%X, DataType: %q},\n",
			e.name, e.v.Index, e.v.Subindex, e.v.DataType.String())
	}
	b.WriteString("}\n\n")

	b.WriteString("// TPDOs are the card's TPDO numbers in transmission slot order.\n")
	b.WriteString("var TPDOs = []int{")
	for i, num := range tpdos {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", num)
	}
	b.WriteString("}\n")

	src, err := imports.Process(pkg+".go", []byte(b.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("formatting generated Go file: %w", err)
	}
	return src, nil
}

func goIntType(dt od.DataType) string {
	switch dt {
	case od.Integer8:
		return "int8"
	case od.Integer16:
		return "int16"
	case od.Integer32:
		return "int32"
	case od.Integer64:
		return "int64"
	case od.Unsigned16:
		return "uint16"
	case od.Unsigned32:
		return "uint32"
	case od.Unsigned64:
		return "uint64"
	default:
		return "uint8"
	}
}

func snakeToCamel(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}
