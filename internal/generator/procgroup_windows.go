//go:build windows

package generator

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// Windows cannot deliver SIGTERM; Kill is the only way to stop a process.
func terminateGroup(p *os.Process) error {
	return p.Kill()
}

func killGroup(p *os.Process) error {
	return p.Kill()
}
