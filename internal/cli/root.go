package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s-archdev/mithra-llm/internal/config"
	"github.com/s-archdev/mithra-llm/internal/llm"
	"github.com/s-archdev/mithra-llm/internal/logging"
	"github.com/s-archdev/mithra-llm/internal/repl"
	"github.com/s-archdev/mithra-llm/internal/runner"
	"github.com/s-archdev/mithra-llm/internal/ui"
)

// rootFlags 全局命令行参数
type rootFlags struct {
	configPath string
	provider   string
	model      string
	logLevel   string
	verbose    bool
}

func (f *rootFlags) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		Path:     f.configPath,
		Provider: f.provider,
		Model:    f.model,
		LogLevel: f.logLevel,
		Verbose:  f.verbose,
	}
}

// reportedError 已经向用户展示过的错误，退出时不再重复打印
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// NewRootCommand 创建 mithra 根命令
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mithra [request...]",
		Short: "用自然语言生成并执行 shell 命令",
		Long: `mithra 把自然语言需求交给大模型翻译成 shell 命令，展示命令与说明，
经您确认后才会执行。

不带参数运行进入交互模式；带参数运行只处理这一条需求，例如：
  mithra 查看当前目录下最大的 10 个文件`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, flags, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "配置文件路径 (默认 "+config.DefaultConfigPath()+")")
	pf.StringVarP(&flags.provider, "provider", "p", "", "LLM 提供商: ollama, openai, azure-openai, gemini, claude, llama-cpp")
	pf.StringVarP(&flags.model, "model", "m", "", "覆盖当前提供商的模型")
	pf.StringVar(&flags.logLevel, "log-level", "", "调试日志级别: debug, info, warn, error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "在 stderr 输出调试日志")

	cmd.AddCommand(newConfigCommand(flags))
	return cmd
}

// session 一次运行所需的全部组件
type session struct {
	cfg       *config.Config
	logger    *zap.Logger
	provider  llm.Provider
	generator *llm.Generator
	runner    *runner.Runner
	printer   *repl.Printer
}

func newSession(cmd *cobra.Command, flags *rootFlags) (*session, error) {
	cfg, err := config.Load(flags.loadOptions())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Verbose)
	if err != nil {
		return nil, err
	}
	if cfg.Path() != "" {
		logger.Debug("config loaded", zap.String("path", cfg.Path()))
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	shell := runner.New(runner.Config{
		Path:    cfg.Shell.Path,
		Flag:    cfg.Shell.Flag,
		Timeout: time.Duration(cfg.Shell.Timeout) * time.Second,
		Logger:  logger.Named("runner"),
	})

	systemPrompt := cfg.LLM.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = llm.DefaultSystemPrompt(runtime.GOOS, shell.Shell())
	}
	generator, err := llm.NewGenerator(provider, llm.GeneratorConfig{
		SystemPrompt: systemPrompt,
		Timeout:      time.Duration(cfg.LLM.Timeout) * time.Second,
		Logger:       logger.Named("generator"),
	})
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	var markdown *repl.Markdown
	if cfg.UI.RenderMarkdown {
		outFile, _ := out.(*os.File)
		markdown, err = repl.NewMarkdown(ui.TerminalWidth(outFile, 80))
		if err != nil {
			logger.Warn("markdown renderer unavailable", zap.Error(err))
			markdown = nil
		}
	}

	logger.Debug("session ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.ActiveModel()),
		zap.String("shell", shell.Shell()),
	)

	return &session{
		cfg:       cfg,
		logger:    logger,
		provider:  provider,
		generator: generator,
		runner:    shell,
		printer:   repl.NewPrinter(out, repl.NewStyles(out, cfg.UI.Color), markdown),
	}, nil
}

func runRoot(cmd *cobra.Command, flags *rootFlags, args []string) error {
	s, err := newSession(cmd, flags)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	loop, err := repl.New(repl.Options{
		In:        in,
		Out:       out,
		Generator: s.generator,
		Executor:  s.runner,
		Printer:   s.printer,
		Greeting:  fmt.Sprintf("mithra 已就绪 (%s / %s)。输入需求，exit、quit 或 q 退出。", s.provider.Name(), s.cfg.ActiveModel()),
		Logger:    s.logger.Named("repl"),
	})
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return loop.Run(ctx)
	}

	request := strings.Join(args, " ")
	if useTUI(in, out) {
		err = ui.RunApp(ctx, request, ui.AppOptions{
			Generator: s.generator,
			Executor:  s.runner,
			Printer:   s.printer,
			Logger:    s.logger.Named("ui"),
		})
	} else {
		err = loop.Handle(ctx, request)
	}

	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return &reportedError{err: err}
}

func useTUI(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok {
		return false
	}
	outFile, ok := out.(*os.File)
	if !ok {
		return false
	}
	return ui.IsTerminal(inFile, outFile)
}

// Execute 运行命令行程序并返回进程退出码
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(cmd.ErrOrStderr(), "错误: %v\n", err)
			if hint := llm.Hint(err); hint != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), hint)
			}
		}
		return 1
	}
	return 0
}
