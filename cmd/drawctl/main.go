// Package main implements drawctl, a command line client for drawing rooms.
package main

import (
	"os"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
)

func main() {
	slogging.SetGlobal(slogging.NewWriterLogger(slogging.LogLevelWarn, true, os.Stderr))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
