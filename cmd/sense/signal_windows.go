//go:build windows

package main

import "os"

// shutdownSignals cancels runs on Ctrl+C; Windows has no SIGTERM.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
