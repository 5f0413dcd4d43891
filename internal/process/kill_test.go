package process

// Notes:
// - KillTree: only invalid PIDs are exercised. Real teardown is covered by the
//   browser integration tests since killing real processes is unsafe here.

import "testing"

func TestKillTree_IgnoresNonPositivePID(t *testing.T) {
	t.Parallel()

	// Must return without signalling; -0 would be the test's own group.
	for _, pid := range []int{0, -1} {
		KillTree(pid)
	}
}

func TestKillTree_UnknownPID(t *testing.T) {
	t.Parallel()

	KillTree(999999999)
}
