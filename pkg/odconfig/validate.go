package odconfig

import (
	"fmt"

	"github.com/aurorasat/candb/pkg/od"
)

// ValidationError is a single issue found while validating a config.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationResult collects all issues found in one config.
type ValidationResult struct {
	// Valid is true if the config passed all validation checks.
	Valid bool

	// Errors contains all validation errors.
	Errors []ValidationError

	// Warnings contains non-fatal issues.
	Warnings []ValidationError
}

// AddError records a validation error.
func (r *ValidationResult) AddError(code, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Code: code, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

// AddWarning records a non-fatal issue.
func (r *ValidationResult) AddWarning(code, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Validator checks a merged card config against the schema invariants:
// unique indices and subindices, known types, resolvable PDO and FRAM field
// references, and PDO payload limits.
type Validator struct {
	// NodeNames is the card roster, needed to resolve members of arrays
	// generated with the node_ids mode. May be empty.
	NodeNames []string
}

// NewValidator creates a validator.
func NewValidator(nodeNames ...string) *Validator {
	return &Validator{NodeNames: nodeNames}
}

// Validate checks a merged card config.
func (v *Validator) Validate(config *CardConfig) *ValidationResult {
	result := &ValidationResult{Valid: true}

	v.checkObjects(config, result)
	v.checkPDOs(config, "tpdo", config.TPDOs, result)
	v.checkPDOs(config, "rpdo", config.RPDOs, result)
	v.checkFram(config, result)

	return result
}

func (v *Validator) checkObjects(config *CardConfig, result *ValidationResult) {
	indices := map[uint16]string{}
	names := map[string]uint16{}

	for _, obj := range config.Objects {
		if prev, ok := indices[obj.Index]; ok {
			result.AddError("INDEX", "index 0x%04X (%s) already used by %s", obj.Index, obj.Name, prev)
		}
		indices[obj.Index] = obj.Name
		if prev, ok := names[obj.Name]; ok {
			result.AddError("NAME", "object name %q already used at 0x%04X", obj.Name, prev)
		}
		names[obj.Name] = obj.Index
		if obj.Name == "" {
			result.AddError("NAME", "object at 0x%04X has no name", obj.Index)
		}

		switch obj.ObjectType {
		case "variable":
			v.checkEntry(fmt.Sprintf("0x%04X (%s)", obj.Index, obj.Name), obj.ConfigObject, result)
			if len(obj.Subindexes) > 0 {
				result.AddError("TYPE", "variable 0x%04X (%s) must not have subindexes", obj.Index, obj.Name)
			}
		case "record", "array":
			v.checkMembers(obj, result)
		default:
			result.AddError("TYPE", "0x%04X (%s): unknown object type %q", obj.Index, obj.Name, obj.ObjectType)
		}
	}
}

func (v *Validator) checkMembers(obj IndexObject, result *ValidationResult) {
	if obj.GenerateSubindexes != nil {
		gen := obj.GenerateSubindexes
		where := fmt.Sprintf("0x%04X (%s) generate_subindexes", obj.Index, obj.Name)
		v.checkEntry(where, gen.ConfigObject, result)
		switch gen.Subindexes {
		case "fixed_length":
			if gen.Length < 1 || gen.Length > 0xFE {
				result.AddError("GEN", "%s: fixed_length needs a length of 1-254", where)
			}
		case "node_ids":
		default:
			result.AddError("GEN", "%s: unknown mode %q", where, gen.Subindexes)
		}
		if len(obj.Subindexes) > 0 {
			result.AddError("GEN", "%s: generated arrays must not also list subindexes", where)
		}
		return
	}

	if len(obj.Subindexes) == 0 {
		result.AddWarning("EMPTY", "0x%04X (%s) has no subindexes", obj.Index, obj.Name)
	}

	subs := map[uint8]string{}
	for _, sub := range obj.Subindexes {
		if sub.Subindex == 0 {
			result.AddError("SUBINDEX", "0x%04X (%s): subindex 0 is reserved", obj.Index, obj.Name)
		}
		if prev, ok := subs[sub.Subindex]; ok {
			result.AddError("SUBINDEX", "0x%04X (%s): subindex 0x%X (%s) already used by %s",
				obj.Index, obj.Name, sub.Subindex, sub.Name, prev)
		}
		subs[sub.Subindex] = sub.Name
		where := fmt.Sprintf("0x%04X sub 0x%X (%s.%s)", obj.Index, sub.Subindex, obj.Name, sub.Name)
		v.checkEntry(where, sub.ConfigObject, result)
	}
}

func (v *Validator) checkEntry(where string, entry ConfigObject, result *ValidationResult) {
	dt, err := od.ParseDataType(entry.DataType)
	if err != nil {
		result.AddError("DATATYPE", "%s: %v", where, err)
		return
	}
	if _, err := od.ParseAccess(entry.AccessType); err != nil {
		result.AddError("ACCESS", "%s: %v", where, err)
	}
	if dt == od.OctetString && entry.Length == 0 && entry.Default == nil {
		result.AddError("LENGTH", "%s: octet_str needs a length or a default", where)
	}
	if entry.LowLimit != nil && entry.HighLimit != nil && *entry.LowLimit > *entry.HighLimit {
		result.AddError("LIMITS", "%s: low_limit above high_limit", where)
	}
	if len(entry.ValueDescriptions) > 0 && !dt.Integer() {
		result.AddError("VALUES", "%s: value_descriptions need an integer type", where)
	}
	if len(entry.BitDefinitions) > 0 {
		if !dt.Integer() {
			result.AddError("BITS", "%s: bit_definitions need an integer type", where)
		}
		for name, bits := range entry.BitDefinitions {
			for _, bit := range bits {
				if bit < 0 || bit >= dt.BitSize() {
					result.AddError("BITS", "%s: bit %d of %q outside %s", where, bit, name, dt)
				}
			}
		}
	}
}

func (v *Validator) checkPDOs(config *CardConfig, kind string, pdos []PDO, result *ValidationResult) {
	nums := map[int]bool{}
	for _, pdo := range pdos {
		where := fmt.Sprintf("%s %d", kind, pdo.Num)
		if pdo.Num < 1 || pdo.Num > 16 {
			result.AddError("PDO", "%s: num must be 1-16", where)
		}
		if nums[pdo.Num] {
			result.AddError("PDO", "%s: num already used", where)
		}
		nums[pdo.Num] = true

		if pdo.TransmissionType != "event" && pdo.TransmissionType != "sync" {
			result.AddError("PDO", "%s: unknown transmission type %q", where, pdo.TransmissionType)
		}

		bits := 0
		for _, ref := range pdo.Fields {
			entry, err := v.Resolve(config, ref)
			if err != nil {
				result.AddError("REF", "%s: %v", where, err)
				continue
			}
			dt, err := od.ParseDataType(entry.DataType)
			if err != nil {
				continue // already reported by checkObjects
			}
			if dt.DynamicLength() {
				result.AddError("PDO", "%s: field %v has dynamic length type %s, not mappable", where, ref, dt)
				continue
			}
			bits += dt.BitSize()
		}
		if bits > 64 {
			result.AddError("PDO", "%s: mapped fields are %d bits, limit is 64", where, bits)
		}
	}
}

func (v *Validator) checkFram(config *CardConfig, result *ValidationResult) {
	for _, ref := range config.Fram {
		if _, err := v.Resolve(config, ref); err != nil {
			result.AddError("REF", "fram: %v", err)
		}
	}
}

// Resolve looks up a one or two name field reference in the config and
// returns the referenced entry definition.
func (v *Validator) Resolve(config *CardConfig, ref []string) (*ConfigObject, error) {
	if len(ref) != 1 && len(ref) != 2 {
		return nil, fmt.Errorf("reference %v must be 1 or 2 names", ref)
	}

	var obj *IndexObject
	for i := range config.Objects {
		if config.Objects[i].Name == ref[0] {
			obj = &config.Objects[i]
			break
		}
	}
	if obj == nil {
		return nil, fmt.Errorf("reference %v: no object named %q", ref, ref[0])
	}

	if len(ref) == 1 {
		if obj.ObjectType != "variable" {
			return nil, fmt.Errorf("reference %v: %q is a %s, a subindex name is required",
				ref, ref[0], obj.ObjectType)
		}
		return &obj.ConfigObject, nil
	}

	if obj.ObjectType == "variable" {
		return nil, fmt.Errorf("reference %v: %q is a variable without subindexes", ref, ref[0])
	}
	if gen := obj.GenerateSubindexes; gen != nil {
		if gen.Subindexes == "fixed_length" {
			for i := 1; i <= gen.Length; i++ {
				if fmt.Sprintf("%s_%d", gen.Name, i) == ref[1] {
					return &gen.ConfigObject, nil
				}
			}
		} else {
			for _, name := range v.NodeNames {
				if name == ref[1] {
					return &gen.ConfigObject, nil
				}
			}
		}
		return nil, fmt.Errorf("reference %v: no generated entry named %q in %q", ref, ref[1], ref[0])
	}
	for i := range obj.Subindexes {
		if obj.Subindexes[i].Name == ref[1] {
			return &obj.Subindexes[i].ConfigObject, nil
		}
	}
	return nil, fmt.Errorf("reference %v: no entry named %q in %q", ref, ref[1], ref[0])
}
