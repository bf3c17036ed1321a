package commands

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/aurorasat/candb/pkg/od"
)

// RunPrintOD dumps a card's object dictionary as text, one line per entry.
func RunPrintOD(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("print-od", flag.ContinueOnError)
	mission := missionFlag(fs)
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one card name required")
		fmt.Fprintln(stderr, "Usage: candb print-od [options] <card>")
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

	for _, index := range dict.Indices() {
		obj := dict.Object(index)
		if v, ok := obj.(*od.Variable); ok {
			printEntry(stdout, index, 0, v)
			continue
		}
		fmt.Fprintf(stdout, "0x%04X: %s\n", index, obj.ObjName())
		var subs []*od.Variable
		switch o := obj.(type) {
		case *od.Record:
			subs = o.Subs()
		case *od.Array:
			subs = o.Subs()
		}
		for _, sub := range subs {
			printEntry(stdout, index, sub.Subindex, sub)
		}
	}
	return exitSuccess
}

func printEntry(w io.Writer, index uint16, subindex uint8, v *od.Variable) {
	fmt.Fprintf(w, "0x%04X 0x%02X: %s: %s %s %v\n",
		index, subindex, v.Name, v.DataType, v.Access, v.Default)
}

func cardList(ods map[string]*od.ObjectDictionary) string {
	names := make([]string, 0, len(ods))
	for name := range ods {
		names = append(names, name)
	}
	sort.Strings(names)
	s := ""
	for i, name := range names {
		if i > 0 {
			s += ", "
		}
		s += name
	}
	return s
}
