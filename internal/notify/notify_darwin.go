package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

func notifyCommand(title, subtitle, body string) *exec.Cmd {
	script := fmt.Sprintf("display notification %q with title %q subtitle %q",
		sanitize(body), sanitize(title), sanitize(subtitle))
	return exec.Command("osascript", "-e", script)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
