//go:build !windows

package pdf

import "os/exec"

// hideWindowOnWindows is a no-op outside Windows.
func hideWindowOnWindows(cmd *exec.Cmd) {
}
