package main

import (
	"github.com/map-harvest/harvest/internal/cli"
)

func main() {
	// Signal handling lives in the long-running commands; the rest
	// finish fast enough that default behavior is fine.
	cli.Execute()
}
