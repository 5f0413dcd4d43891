//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// KillTree kills a browser process and its children using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; launcher.Kill() has already signalled the leader.
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run() // #nosec G204 -- pid is an integer
}
