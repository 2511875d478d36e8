//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package build

import "os"

func signalName(*os.ProcessState) string {
	return ""
}
