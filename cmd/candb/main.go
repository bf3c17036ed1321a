// candb is a CLI tool for the AuroraSat CANopen object dictionary database:
// it validates the mission configs and generates DCF files, CANopenNode
// C sources, Go constants, and documentation from them.
package main

import (
	"fmt"
	"os"

	"github.com/aurorasat/candb/cmd/candb/commands"
	"github.com/aurorasat/candb/internal/logging"
	"github.com/aurorasat/candb/pkg/odb"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
)

func main() {
	logging.Configure(logging.Config{})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitCommandError)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var exitCode int
	switch cmd {
	case "validate":
		exitCode = commands.RunValidate(args, os.Stdout, os.Stderr)
	case "print-od":
		exitCode = commands.RunPrintOD(args, os.Stdout, os.Stderr)
	case "dcf":
		exitCode = commands.RunDCF(args, os.Stdout, os.Stderr)
	case "c-files":
		exitCode = commands.RunCFiles(args, os.Stdout, os.Stderr)
	case "go-file":
		exitCode = commands.RunGoFile(args, os.Stdout, os.Stderr)
	case "docs":
		exitCode = commands.RunDocs(args, os.Stdout, os.Stderr)
	case "kaitai":
		exitCode = commands.RunKaitai(args, os.Stdout, os.Stderr)
	case "cache":
		exitCode = commands.RunCache(args, os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		printUsage()
		exitCode = exitSuccess
	case "version", "-v", "--version":
		fmt.Println("candb version " + odb.Version)
		exitCode = exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		exitCode = exitCommandError
	}

	os.Exit(exitCode)
}

func printUsage() {
	fmt.Println(`candb - AuroraSat CANopen object dictionary database

Usage:
  candb <command> [options]

Commands:
  validate   Validate a mission's card configs, or specific YAML files
  print-od   Print a card's object dictionary
  dcf        Generate CiA 306 DCF files for every card
  c-files    Generate CANopenNode OD.c/OD.h sources
  go-file    Generate Go constants for a card's OD
  docs       Generate markdown beacon and OD documentation
  kaitai     Generate a Kaitai Struct beacon decoder definition
  cache      Manage the on-disk database cache

Options:
  -h, --help     Show this help message
  -v, --version  Show version information

Examples:
  candb validate -mission 0.5
  candb print-od battery_1
  candb dcf -mission 1 -dir build/
  candb c-files -hw 0.3
  candb docs -dir docs/

For command-specific help, run:
  candb <command> --help`)
}
