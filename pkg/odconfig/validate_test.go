package odconfig

import (
	"strings"
	"testing"
)

func validateDoc(t *testing.T, doc string) *ValidationResult {
	t.Helper()
	config, err := ParseCardConfig([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return NewValidator().Validate(config)
}

func errorCodes(result *ValidationResult) []string {
	codes := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		codes[i] = e.Code
	}
	return codes
}

func requireError(t *testing.T, result *ValidationResult, code string) {
	t.Helper()
	for _, e := range result.Errors {
		if e.Code == code {
			return
		}
	}
	t.Errorf("expected a %s error, got %v", code, errorCodes(result))
}

func TestValidateCleanConfig(t *testing.T) {
	result := validateDoc(t, sampleCard)
	if len(result.Errors) != 0 {
		t.Errorf("sample config should be valid, got %v", errorCodes(result))
	}
}

func TestValidateDuplicateIndex(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: a
    data_type: uint8
  - index: 0x4000
    name: b
    data_type: uint8
`)
	requireError(t, result, "INDEX")
}

func TestValidateUnknownDataType(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: a
    data_type: uint128
`)
	requireError(t, result, "DATATYPE")
}

func TestValidateBitOutsideType(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: flags
    data_type: uint8
    bit_definitions:
      high: 12
`)
	requireError(t, result, "BITS")
}

func TestValidateReservedSubindex(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: rec
    object_type: record
    subindexes:
      - subindex: 0x0
        name: bad
        data_type: uint8
`)
	requireError(t, result, "SUBINDEX")
}

func TestValidateGenerateSubindexes(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: temps
    object_type: array
    generate_subindexes:
      name: temp
      data_type: int8
      subindexes: fixed_length
      length: 8
`)
	if len(result.Errors) != 0 {
		t.Errorf("fixed_length array should be valid, got %v", errorCodes(result))
	}

	result = validateDoc(t, `
objects:
  - index: 0x4000
    name: temps
    object_type: array
    generate_subindexes:
      name: temp
      data_type: int8
      subindexes: per_bus
`)
	requireError(t, result, "GEN")
}

func TestValidatePDOs(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: big
    data_type: uint64
  - index: 0x4001
    name: small
    data_type: uint8

tpdos:
  - num: 1
    fields:
      - [big]
      - [small]
`)
	requireError(t, result, "PDO")
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e.Message, "limit is 64") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a payload size error, got %+v", result.Errors)
	}

	result = validateDoc(t, `
objects:
  - index: 0x4000
    name: small
    data_type: uint8

rpdos:
  - num: 1
    fields:
      - [missing]
`)
	requireError(t, result, "REF")
}

func TestValidateFramRefs(t *testing.T) {
	result := validateDoc(t, `
objects:
  - index: 0x4000
    name: rec
    object_type: record
    subindexes:
      - subindex: 0x1
        name: a
        data_type: uint8

fram:
  - [rec, a]
  - [rec, missing]
`)
	requireError(t, result, "REF")
	if len(result.Errors) != 1 {
		t.Errorf("only the dangling ref should fail, got %v", errorCodes(result))
	}
}
