//go:build linux

package probe

import (
	"context"
	"os/exec"
)

// serviceRestartCmd restarts a user-scope systemd unit
func serviceRestartCmd(ctx context.Context, label string) *exec.Cmd {
	return exec.CommandContext(ctx, "systemctl", "--user", "restart", label)
}
