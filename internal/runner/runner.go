package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Result 一次命令执行的输出与退出码
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ErrorKind 执行失败的类别
type ErrorKind int

const (
	// LaunchFailure shell 无法启动
	LaunchFailure ErrorKind = iota
	// Timeout 超过 shell.timeout 被终止
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case LaunchFailure:
		return "launch_failure"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ExecutionError 命令没有正常跑完。非零退出码不属于此类错误。
type ExecutionError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	switch e.Kind {
	case LaunchFailure:
		return fmt.Sprintf("无法启动命令: %v", e.Err)
	case Timeout:
		return fmt.Sprintf("命令执行超时: %v", e.Err)
	default:
		return fmt.Sprintf("命令执行失败: %v", e.Err)
	}
}

// Unwrap 支持错误链
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Config Runner 配置。Path 与 Flag 为空时使用平台默认 shell。
type Config struct {
	Path    string
	Flag    string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Runner 通过宿主 shell 执行命令
type Runner struct {
	shell   string
	flag    string
	timeout time.Duration
	logger  *zap.Logger
}

// New 创建 Runner
func New(cfg Config) *Runner {
	shell, flag := cfg.Path, cfg.Flag
	if shell == "" {
		shell, flag = DefaultShell()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		shell:   shell,
		flag:    flag,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Shell 返回实际使用的 shell 路径
func (r *Runner) Shell() string {
	return r.shell
}

// Run 以完整 shell 语义执行命令，等进程结束后一次性返回输出。
// stdin 不连接终端，命令读到的是 EOF。
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var args []string
	if r.flag != "" {
		args = append(args, r.flag)
	}
	args = append(args, command)

	cmd := exec.CommandContext(ctx, r.shell, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = nil
	configureProcess(cmd)
	cmd.Cancel = func() error {
		terminateProcess(cmd)
		return nil
	}
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.logger.Warn("launch failed", zap.String("shell", r.shell), zap.Error(err))
		return nil, &ExecutionError{Kind: LaunchFailure, Command: command, Err: err}
	}

	err := cmd.Wait()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("command aborted", zap.Duration("elapsed", elapsed), zap.Error(ctxErr))
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &ExecutionError{Kind: Timeout, Command: command, Err: ctxErr}
		}
		return nil, ctxErr
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &ExecutionError{Kind: LaunchFailure, Command: command, Err: err}
		}
		res.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug("command finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("elapsed", elapsed),
		zap.Int("stdout_bytes", len(res.Stdout)),
		zap.Int("stderr_bytes", len(res.Stderr)),
	)
	return res, nil
}
