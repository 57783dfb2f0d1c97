//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancels runs on SIGINT and SIGTERM.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
