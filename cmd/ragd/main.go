// Command ragd is the retrieval engine's command-line entrypoint: it
// indexes script text into the vector and lexical shadow indices and
// answers retrieval queries against them.
//
// Configuration is loaded from environment variables. See internal/config
// for the full list.
//
// Usage:
//
//	ragd index documents.jsonl
//	ragd search "school shooting scene" --k 5 --strategy hybrid
//	ragd version
package main

import (
	"fmt"
	"os"
)

// version information, set via ldflags during build.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
