// Package commands implements the candb subcommands.
package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/aurorasat/candb/pkg/odb"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
	exitValidation   = 2
)

// missionFlag registers the shared -mission flag on a command's flag set.
func missionFlag(fs *flag.FlagSet) *string {
	return fs.String("mission", odb.DefaultMission().Arg(),
		"mission to use ("+missionList()+")")
}

func missionList() string {
	s := ""
	for i, m := range odb.Missions() {
		if i > 0 {
			s += ", "
		}
		s += m.Arg()
	}
	return s
}

// loadDatabase resolves a -mission argument and loads (or builds) the
// mission database.
func loadDatabase(arg string) (*odb.Database, error) {
	m, err := odb.MissionFromString(arg)
	if err != nil {
		return nil, err
	}
	db, err := odb.Load(m)
	if err != nil {
		return nil, fmt.Errorf("loading %s database: %w", m, err)
	}
	return db, nil
}

func parseArgs(fs *flag.FlagSet, args []string, stderr io.Writer) error {
	fs.SetOutput(stderr)
	return fs.Parse(args)
}
