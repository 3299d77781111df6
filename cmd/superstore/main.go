// Package main is the entry point for the superstore CLI.
//
// superstore inspects and edits the local document that persistable stores
// are mirrored into.
//
// Usage:
//
//	superstore ls                      # List keys and values
//	superstore get app:theme --color   # Print a value as highlighted JSON
//	superstore set app:theme '"dark"'  # Store a JSON value
//	superstore rm app:theme            # Remove a key
//	superstore watch                   # Print keys changed by other processes
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
