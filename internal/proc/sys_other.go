//go:build !unix

package proc

import (
	"os"
	"os/exec"
)

type signal int

const (
	sigTerm signal = iota
	sigKill
)

func setProcessGroup(*exec.Cmd) {}

// Without process groups both signals fall back to killing the direct child.
func signalGroup(p *os.Process, _ signal) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}
