// Package main provides the entry point for livedoc.
package main

import (
	"fmt"
	"os"

	"github.com/livedoc/livedoc/cmd/livedoc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
