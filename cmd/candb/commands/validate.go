package commands

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/aurorasat/candb/pkg/odb"
	"github.com/aurorasat/candb/pkg/odconfig"
)

// RunValidate checks every card config of a mission and then builds the full
// database, reporting anything that would stop generation. With positional
// YAML file arguments it validates just those files instead.
func RunValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	mission := missionFlag(fs)
	verbose := fs.Bool("verbose", false, "show warnings as well as errors")
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}

	m, err := odb.MissionFromString(*mission)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	cards, err := odb.LoadCards(m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitValidation
	}

	names := make([]string, 0, len(cards))
	for name := range cards {
		names = append(names, name)
	}
	sort.Strings(names)

	validator := odconfig.NewValidator(names...)

	if fs.NArg() > 0 {
		return validateFiles(fs.Args(), validator, *verbose, stdout, stderr)
	}
	hasErrors := false
	for _, name := range names {
		card := cards[name]
		if card.Base == "" {
			continue
		}
		config, err := odb.MergedConfig(m, name, card)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			hasErrors = true
			continue
		}
		result := validator.Validate(config)
		for _, e := range result.Errors {
			fmt.Fprintf(stderr, "%s: error %s: %s\n", name, e.Code, e.Message)
			hasErrors = true
		}
		if *verbose {
			for _, w := range result.Warnings {
				fmt.Fprintf(stdout, "%s: warning %s: %s\n", name, w.Code, w.Message)
			}
		}
	}

	if !hasErrors {
		if _, err := odb.Build(m); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			hasErrors = true
		}
	}

	if hasErrors {
		return exitValidation
	}
	fmt.Fprintf(stdout, "%s configs are valid\n", m)
	return exitSuccess
}

func validateFiles(paths []string, validator *odconfig.Validator, verbose bool, stdout, stderr io.Writer) int {
	hasErrors := false
	for _, path := range paths {
		config, err := odconfig.LoadCardConfig(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			hasErrors = true
			continue
		}
		result := validator.Validate(config)
		for _, e := range result.Errors {
			fmt.Fprintf(stderr, "%s: error %s: %s\n", path, e.Code, e.Message)
			hasErrors = true
		}
		if verbose {
			for _, w := range result.Warnings {
				fmt.Fprintf(stdout, "%s: warning %s: %s\n", path, w.Code, w.Message)
			}
		}
	}
	if hasErrors {
		return exitValidation
	}
	fmt.Fprintln(stdout, "configs are valid")
	return exitSuccess
}
