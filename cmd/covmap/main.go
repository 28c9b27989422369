// Package main provides the covmap binary.
package main

import (
	"fmt"
	"os"

	"github.com/coral-mesh/covmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
