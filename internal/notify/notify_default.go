//go:build !darwin && !linux

package notify

import "os/exec"

func notifyCommand(title, subtitle, body string) *exec.Cmd {
	return nil
}
