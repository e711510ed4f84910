//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// DefaultShell 返回平台默认 shell 及其命令参数
func DefaultShell() (string, string) {
	return "/bin/sh", "-c"
}

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	// 负的 pgid 表示整个进程组，shell 派生的子进程一起结束
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}
	_ = cmd.Process.Kill()
}
