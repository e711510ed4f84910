//go:build windows

package runner

import (
	"os"
	"os/exec"
)

// DefaultShell 返回平台默认 shell 及其命令参数
func DefaultShell() (string, string) {
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec, "/C"
	}
	return "cmd.exe", "/C"
}

func configureProcess(cmd *exec.Cmd) {}

func terminateProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
