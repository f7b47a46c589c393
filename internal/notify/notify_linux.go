package notify

import "os/exec"

func notifyCommand(title, subtitle, body string) *exec.Cmd {
	summary := title
	if subtitle != "" {
		summary = title + " - " + subtitle
	}
	return exec.Command("notify-send", summary, body)
}
