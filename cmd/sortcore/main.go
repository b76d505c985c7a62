// Package main provides the entry point for the sortcore CLI.
package main

import (
	"os"

	"github.com/Melik1986/sortcore/cmd/sortcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
