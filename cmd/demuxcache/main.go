// Package main is the entry point for the demuxcache application.
package main

import (
	"os"

	"github.com/jmylchreest/demuxcache/cmd/demuxcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
