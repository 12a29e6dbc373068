// Package main provides the entry point for the catwalk volume cataloger CLI.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
