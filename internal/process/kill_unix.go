//go:build !windows

package process

import "syscall"

// KillTree kills a browser process and its children by sending SIGKILL to
// the process group (negative PID). Non-positive PIDs are ignored: -0 would
// target the server's own group.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; launcher.Kill() has already signalled the leader.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
