package commands

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/aurorasat/candb/pkg/gen"
)

// RunDocs writes markdown documentation: the beacon frame layout and one
// object dictionary table per card.
func RunDocs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("docs", flag.ContinueOnError)
	mission := missionFlag(fs)
	dir := fs.String("dir", ".", "output directory")
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}

	db, err := loadDatabase(*mission)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	c3 := db.ODs["c3"]
	beacon := gen.BeaconDoc(db.Mission.String(), db.BeaconConfig.Revision, c3, db.Beacon)
	path := filepath.Join(*dir, db.Mission.Filename()+"_beacon.md")
	if err := gen.WriteFile(path, beacon); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintln(stdout, path)

	names := make([]string, 0, len(db.ODs))
	for name := range db.ODs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(*dir, name+"_od.md")
		if err := gen.WriteFile(path, gen.ODDoc(name, db.ODs[name])); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		fmt.Fprintln(stdout, path)
	}
	return exitSuccess
}

// RunKaitai writes a Kaitai Struct definition for decoding beacon frames.
func RunKaitai(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kaitai", flag.ContinueOnError)
	mission := missionFlag(fs)
	dir := fs.String("dir", ".", "output directory")
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}

	db, err := loadDatabase(*mission)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	data, err := gen.Kaitai(db.Mission.Filename(), db.ODs["c3"], db.Beacon)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	path := filepath.Join(*dir, db.Mission.Filename()+".ksy")
	if err := gen.WriteFile(path, data); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintln(stdout, path)
	return exitSuccess
}
