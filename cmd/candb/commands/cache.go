package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/aurorasat/candb/pkg/odb"
)

// RunCache manages the on-disk database cache.
func RunCache(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	if err := parseArgs(fs, args, stderr); err != nil {
		return exitCommandError
	}

	switch fs.Arg(0) {
	case "clear":
		if err := odb.ClearCache(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		fmt.Fprintln(stdout, "cache cleared")
	case "clean":
		if err := odb.CleanCache(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		fmt.Fprintln(stdout, "stale cache entries removed")
	case "path":
		dir, err := odb.CacheDir()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		fmt.Fprintln(stdout, dir)
	default:
		fmt.Fprintln(stderr, "Usage: candb cache <clear|clean|path>")
		return exitCommandError
	}
	return exitSuccess
}
