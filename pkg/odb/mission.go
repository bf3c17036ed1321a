// Package odb assembles the per-mission object dictionary database from the
// embedded YAML card configs, standard objects library, cards roster, and
// beacon definition, and derives the beacon and FRAM persistence layouts.
package odb

import (
	"fmt"
	"strings"
)

// Version is the database schema version, recorded in every built OD and
// used to key the disk cache.
const Version = "1.2.0"

// Mission identifies one AuroraSat mission revision.
type Mission int

const (
	AuroraSat0 Mission = iota + 1
	AuroraSat0_5
	AuroraSat1
)

var missionArgs = map[Mission]string{
	AuroraSat0:   "0",
	AuroraSat0_5: "0.5",
	AuroraSat1:   "1",
}

// Missions returns all known missions in launch order.
func Missions() []Mission {
	return []Mission{AuroraSat0, AuroraSat0_5, AuroraSat1}
}

// DefaultMission is the mission currently in active development.
func DefaultMission() Mission { return AuroraSat0_5 }

// String returns the mission name, e.g. "AuroraSat0.5".
func (m Mission) String() string {
	arg, ok := missionArgs[m]
	if !ok {
		return fmt.Sprintf("Mission(%d)", int(m))
	}
	return "AuroraSat" + arg
}

// Arg returns the short mission argument, e.g. "0.5".
func (m Mission) Arg() string { return missionArgs[m] }

// Valid reports whether the mission is known.
func (m Mission) Valid() bool {
	_, ok := missionArgs[m]
	return ok
}

// Filename returns the mission name in a form safe for file names and
// config directory names: lower case, dots replaced with underscores.
func (m Mission) Filename() string {
	return strings.ReplaceAll(strings.ToLower(m.String()), ".", "_")
}

// MissionFromString returns the mission for a short or long name:
// "0.5", "aurorasat0.5", and "AuroraSat0.5" all resolve to AuroraSat0_5.
func MissionFromString(s string) (Mission, error) {
	arg := strings.TrimPrefix(strings.ToLower(s), "aurorasat")
	for m, a := range missionArgs {
		if a == arg {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid mission %q", s)
}

// MissionFromID returns the mission with the given satellite id.
func MissionFromID(id int) (Mission, error) {
	m := Mission(id)
	if !m.Valid() {
		return 0, fmt.Errorf("invalid mission id %d", id)
	}
	return m, nil
}
