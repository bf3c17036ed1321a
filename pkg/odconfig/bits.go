package odconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BitDef is the set of bit positions a named bit field covers. In YAML it
// may be written as a single int, a list of ints, or a "low-high" range
// string.
type BitDef []int

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BitDef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var bits []int
		if err := node.Decode(&bits); err != nil {
			return err
		}
		*b = bits
		return nil
	case yaml.ScalarNode:
		if bit, err := strconv.Atoi(node.Value); err == nil {
			*b = BitDef{bit}
			return nil
		}
		low, high, ok := strings.Cut(node.Value, "-")
		if !ok {
			return fmt.Errorf("line %d: invalid bit definition %q", node.Line, node.Value)
		}
		lo, err := strconv.Atoi(strings.TrimSpace(low))
		if err != nil {
			return fmt.Errorf("line %d: invalid bit range %q", node.Line, node.Value)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(high))
		if err != nil {
			return fmt.Errorf("line %d: invalid bit range %q", node.Line, node.Value)
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		bits := make(BitDef, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			bits = append(bits, i)
		}
		*b = bits
		return nil
	default:
		return fmt.Errorf("line %d: bit definition must be an int, list, or range string", node.Line)
	}
}

// Sorted returns the bit positions in ascending order.
func (b BitDef) Sorted() []int {
	bits := append([]int(nil), b...)
	sort.Ints(bits)
	return bits
}
