// Package daemon re-executes the current binary as a detached background
// process. Go cannot fork, so "run sync in the background" is rendered as
// spawning `aniscrobble sync` in its own session with the standard streams
// on the null device.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// Spawn starts the current executable with the given arguments, detached
// from the calling terminal. It reports only whether the spawn succeeded;
// the child's outcome is its own.
func Spawn(args ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot spawn sync task: %w", err)
	}

	cmd := exec.Command(exe, args...)
	// nil Stdin/Stdout/Stderr connect the child to the null device.
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot spawn sync task: %w", err)
	}
	return cmd.Process.Release()
}
