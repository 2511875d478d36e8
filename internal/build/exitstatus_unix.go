//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package build

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func signalName(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	if name := unix.SignalName(ws.Signal()); name != "" {
		return name
	}
	return ws.Signal().String()
}
