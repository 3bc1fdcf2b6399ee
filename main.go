// Package main is the entry point for the GroundLink ground station.
package main

import (
	"fmt"
	"os"

	"github.com/cygnusgs/groundlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
