package commands

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/aurorasat/candb/pkg/gen"
	"github.com/aurorasat/candb/pkg/od"
)

// RunDCF writes a CiA 306 DCF file for every card of a mission.
func RunDCF(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dcf", flag.ContinueOnError)
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

	names := make([]string, 0, len(db.ODs))
	for name := range db.ODs {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	for _, name := range names {
		path := filepath.Join(*dir, name+".dcf")
		if err := gen.WriteFile(path, gen.DCF(db.ODs[name], name, now)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		fmt.Fprintln(stdout, path)
	}
	return exitSuccess
}

// RunCFiles writes the CANopenNode OD.c/OD.h pair for the shared firmware
// base object dictionary, or for a single card when -card is given.
func RunCFiles(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("c-files", flag.ContinueOnError)
	mission := missionFlag(fs)
	dir := fs.String("dir", ".", "output directory")
	card := fs.String("card", "", "card to generate for, defaults to the firmware base")
	hwVersion := fs.String("hw", "", "override the hw_version default")
	fwVersion := fs.String("fw", "", "override the software_version default")
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}

	db, err := loadDatabase(*mission)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	dict := db.FWBase
	if *card != "" {
		var ok bool
		dict, ok = db.ODs[*card]
		if !ok {
			fmt.Fprintf(stderr, "Error: no card named %q, have: %s\n", *card, cardList(db.ODs))
			return exitCommandError
		}
	}

	if err := overrideVersion(dict, "hw_version", *hwVersion); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	if err := overrideVersion(dict, "software_version", *fwVersion); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	gen.StripNodeIDs(dict)

	hPath := filepath.Join(*dir, "OD.h")
	if err := gen.WriteFile(hPath, gen.CANopenNodeH(dict)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintln(stdout, hPath)

	cPath := filepath.Join(*dir, "OD.c")
	if err := gen.WriteFile(cPath, gen.CANopenNodeC(dict)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintln(stdout, cPath)
	return exitSuccess
}

func overrideVersion(dict *od.ObjectDictionary, sub, value string) error {
	if value == "" {
		return nil
	}
	v, err := dict.Entry("versions", sub)
	if err != nil {
		return err
	}
	v.Default = value
	return nil
}

// RunGoFile writes a Go source file with OD constants for one card.
func RunGoFile(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("go-file", flag.ContinueOnError)
	mission := missionFlag(fs)
	dir := fs.String("dir", ".", "output directory")
	pkg := fs.String("package", "od", "package name for the generated file")
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one card name required")
		fmt.Fprintln(stderr, "Usage: candb go-file [options] <card>")
		return exitCommandError
	}
	name := fs.Arg(0)

	db, err := loadDatabase(*mission)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	dict, ok := db.ODs[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: no card named %q, have: %s\n", name, cardList(db.ODs))
		return exitCommandError
	}

	data, err := gen.GoFile(name, dict, *pkg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	path := filepath.Join(*dir, name+"_od.go")
	if err := gen.WriteFile(path, data); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintln(stdout, path)
	return exitSuccess
}
