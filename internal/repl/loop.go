package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/s-archdev/mithra-llm/internal/llm"
	"github.com/s-archdev/mithra-llm/internal/runner"
	"github.com/s-archdev/mithra-llm/internal/safety"
)

// Generator 把请求翻译成命令建议
type Generator interface {
	Generate(ctx context.Context, request string) (llm.CommandProposal, error)
}

// Executor 执行已确认的命令
type Executor interface {
	Run(ctx context.Context, command string) (*runner.Result, error)
}

// State 交互循环的状态
type State int

const (
	StateAwaitingInput State = iota
	StateGenerating
	StateDisplaying
	StateAwaitingConfirmation
	StateExecuting
	StateExit
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateGenerating:
		return "generating"
	case StateDisplaying:
		return "displaying"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateExecuting:
		return "executing"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

const (
	inputPrompt   = "mithra> "
	confirmPrompt = "执行该命令? [y/N] "
)

var exitKeywords = map[string]bool{
	"exit": true,
	"quit": true,
	"q":    true,
}

// IsExitKeyword 判断输入是否为退出指令，忽略大小写与首尾空白
func IsExitKeyword(input string) bool {
	return exitKeywords[strings.ToLower(strings.TrimSpace(input))]
}

// Confirmed 只有去掉首尾空白后恰好为小写 y 才算确认
func Confirmed(answer string) bool {
	return strings.TrimSpace(answer) == "y"
}

// Options 交互循环的依赖
type Options struct {
	In        io.Reader
	Out       io.Writer
	Generator Generator
	Executor  Executor
	Printer   *Printer
	// Greeting 非空时在启动时打印一次
	Greeting string
	Logger   *zap.Logger
}

// Loop 读取请求、生成命令、确认后执行
type Loop struct {
	in        io.Reader
	out       io.Writer
	generator Generator
	executor  Executor
	printer   *Printer
	greeting  string
	logger    *zap.Logger

	lines <-chan string
}

// New 创建交互循环
func New(opts Options) (*Loop, error) {
	if opts.In == nil || opts.Out == nil {
		return nil, errors.New("交互循环需要输入与输出")
	}
	if opts.Generator == nil {
		return nil, errors.New("命令生成器未初始化")
	}
	if opts.Executor == nil {
		return nil, errors.New("命令执行器未初始化")
	}

	printer := opts.Printer
	if printer == nil {
		printer = NewPrinter(opts.Out, NewStyles(opts.Out, false), nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loop{
		in:        opts.In,
		out:       opts.Out,
		generator: opts.Generator,
		executor:  opts.Executor,
		printer:   printer,
		greeting:  opts.Greeting,
		logger:    logger,
	}, nil
}

// Run 运行到用户退出、输入结束或 ctx 被取消，三种情况都返回 nil
func (l *Loop) Run(ctx context.Context) error {
	l.startReader(ctx)

	if l.greeting != "" {
		fmt.Fprintln(l.out, l.greeting)
	}

	for {
		fmt.Fprint(l.out, inputPrompt)
		line, ok := l.readLine(ctx)
		if !ok {
			if ctx.Err() == nil {
				// EOF
				fmt.Fprintln(l.out)
			}
			return nil
		}
		if IsExitKeyword(line) {
			return nil
		}

		if next, _ := l.iterate(ctx, line); next == StateExit {
			return nil
		}
	}
}

// Handle 对单个请求走完一轮 生成 → 展示 → 确认 → 执行。
// 生成或执行失败时返回对应错误，错误信息已经打印过。
func (l *Loop) Handle(ctx context.Context, request string) error {
	l.startReader(ctx)
	_, err := l.iterate(ctx, request)
	return err
}

// iterate 处理一轮请求，返回下一个状态。panic 在这里被拦下，循环继续。
func (l *Loop) iterate(ctx context.Context, request string) (next State, err error) {
	state := StateGenerating
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered in loop", zap.Stringer("state", state), zap.Any("panic", r))
			l.printer.Internal(r)
			next = StateAwaitingInput
			err = fmt.Errorf("内部错误: %v", r)
		}
		if ctx.Err() != nil {
			next = StateExit
		}
	}()

	proposal, err := l.generator.Generate(ctx, request)
	if ctx.Err() != nil {
		return StateExit, ctx.Err()
	}
	if err != nil {
		l.printer.GenerationError(err)
		return StateAwaitingInput, err
	}

	state = StateDisplaying
	l.printer.Proposal(proposal, safety.Inspect(proposal.Command))
	if strings.TrimSpace(proposal.Command) == "" {
		l.printer.NoCommandNotice()
		return StateAwaitingInput, nil
	}

	state = StateAwaitingConfirmation
	fmt.Fprint(l.out, confirmPrompt)
	answer, ok := l.readLine(ctx)
	if !ok {
		if ctx.Err() != nil {
			return StateExit, ctx.Err()
		}
		// 确认时输入结束，视为拒绝并退出
		fmt.Fprintln(l.out)
		return StateExit, nil
	}
	if !Confirmed(answer) {
		l.logger.Debug("command declined")
		return StateAwaitingInput, nil
	}

	state = StateExecuting
	res, err := l.executor.Run(ctx, proposal.Command)
	if ctx.Err() != nil {
		return StateExit, ctx.Err()
	}
	if err != nil {
		l.printer.ExecutionError(err)
		return StateAwaitingInput, err
	}
	l.printer.Result(res)
	return StateAwaitingInput, nil
}

// startReader 在后台按行读取输入，使等待输入时也能响应 ctx 取消
func (l *Loop) startReader(ctx context.Context) {
	if l.lines != nil {
		return
	}
	lines := make(chan string)
	l.lines = lines

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimRight(scanner.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			l.logger.Debug("input closed", zap.Error(err))
		}
	}()
}

func (l *Loop) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-l.lines:
		if !ok {
			return "", false
		}
		// 取消与输入同时到达时以取消为准
		if ctx.Err() != nil {
			return "", false
		}
		return line, true
	}
}
