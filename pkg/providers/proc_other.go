//go:build !unix

package providers

import "os/exec"

// configureProcess keeps the os/exec default of killing the direct child on
// cancellation.
func configureProcess(cmd *exec.Cmd) {}
