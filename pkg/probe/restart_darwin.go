//go:build darwin

package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// serviceRestartCmd kickstarts a launchd agent in the user's GUI domain
func serviceRestartCmd(ctx context.Context, label string) *exec.Cmd {
	target := fmt.Sprintf("gui/%d/%s", os.Getuid(), label)
	return exec.CommandContext(ctx, "launchctl", "kickstart", "-k", target)
}
