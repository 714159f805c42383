// Package main provides the entry point for the expertscout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/expertscout/expertscout/cmd/expertscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
