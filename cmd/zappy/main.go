// Command zappy runs the medical blog content pipeline: research, drafting,
// concurrent compliance/readability/SEO review and a final edit.
package main

import (
	"fmt"
	"os"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
