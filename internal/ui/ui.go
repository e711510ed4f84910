package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/s-archdev/mithra-llm/internal/llm"
	"github.com/s-archdev/mithra-llm/internal/repl"
	"github.com/s-archdev/mithra-llm/internal/safety"
)

// AppState represents the different states of the application
type AppState int

const (
	StateGenerating AppState = iota
	StateConfirming
	StateApproved
	StateCopied
	StateNoCommand
	StateError
	StateCanceled
)

func (s AppState) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateConfirming:
		return "confirming"
	case StateApproved:
		return "approved"
	case StateCopied:
		return "copied"
	case StateNoCommand:
		return "no_command"
	case StateError:
		return "error"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// AppModel 单次模式的界面：生成命令，等待用户按键决定执行、复制或取消
type AppModel struct {
	ctx       context.Context
	generator repl.Generator
	request   string

	state    AppState
	proposal llm.CommandProposal
	warnings []safety.Warning
	err      error
	spinner  spinner.Model

	copyFn func(string) error

	// Styles
	titleStyle   lipgloss.Style
	commandStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	faintStyle   lipgloss.Style
}

// NewAppModel creates a new application model
func NewAppModel(ctx context.Context, generator repl.Generator, request string) *AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	return &AppModel{
		ctx:          ctx,
		generator:    generator,
		request:      request,
		state:        StateGenerating,
		spinner:      s,
		copyFn:       clipboard.WriteAll,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		commandStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		warningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		faintStyle:   lipgloss.NewStyle().Faint(true),
	}
}

// State 返回当前状态
func (m *AppModel) State() AppState {
	return m.state
}

// Proposal 返回模型给出的命令
func (m *AppModel) Proposal() llm.CommandProposal {
	return m.proposal
}

// Err 返回生成或复制失败的原因
func (m *AppModel) Err() error {
	return m.err
}

// Message types for AppModel
type generatedMsg struct {
	proposal llm.CommandProposal
	err      error
}

type copiedMsg struct {
	err error
}

// Init starts generation and the spinner
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.generateCmd())
}

// Update handles messages and state transitions
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		if m.state != StateGenerating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case generatedMsg:
		return m.handleGenerated(msg)
	case copiedMsg:
		return m.handleCopied(msg)
	}
	return m, nil
}

// View renders the current state. 结束状态由 RunApp 在界面退出后输出。
func (m *AppModel) View() string {
	switch m.state {
	case StateGenerating:
		return m.titleStyle.Render("🧠 生成中") + "\n\n" +
			m.spinner.View() + " 正在理解您的需求: " +
			lipgloss.NewStyle().Italic(true).Render(m.request) + "\n\n" +
			m.faintStyle.Render("Ctrl+C 取消")
	case StateConfirming:
		return m.renderConfirmView()
	default:
		return ""
	}
}

func (m *AppModel) generateCmd() tea.Cmd {
	return func() tea.Msg {
		proposal, err := m.generator.Generate(m.ctx, m.request)
		return generatedMsg{proposal: proposal, err: err}
	}
}

func (m *AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.state = StateCanceled
		return m, tea.Quit
	}

	if m.state != StateConfirming {
		return m, nil
	}

	switch msg.String() {
	case "y":
		m.state = StateApproved
		return m, tea.Quit
	case "c":
		return m.copyCommand()
	default:
		m.state = StateCanceled
		return m, tea.Quit
	}
}

func (m *AppModel) handleGenerated(msg generatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = StateError
		m.err = msg.err
		return m, tea.Quit
	}

	m.proposal = msg.proposal
	if strings.TrimSpace(msg.proposal.Command) == "" {
		m.state = StateNoCommand
		return m, tea.Quit
	}

	m.warnings = safety.Inspect(msg.proposal.Command)
	m.state = StateConfirming
	return m, nil
}

func (m *AppModel) copyCommand() (tea.Model, tea.Cmd) {
	command := m.proposal.Command
	copyFn := m.copyFn
	return m, func() tea.Msg {
		return copiedMsg{err: copyFn(command)}
	}
}

func (m *AppModel) handleCopied(msg copiedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = StateError
		m.err = fmt.Errorf("复制失败: %w", msg.err)
		return m, tea.Quit
	}
	m.state = StateCopied
	return m, tea.Quit
}

func (m *AppModel) renderConfirmView() string {
	var s strings.Builder

	explanation := m.proposal.Explanation
	if strings.TrimSpace(explanation) == "" {
		explanation = repl.NoExplanation
	}

	s.WriteString(m.titleStyle.Render("🚀 建议命令:"))
	s.WriteString("\n\n  ")
	s.WriteString(m.commandStyle.Render(m.proposal.Command))
	s.WriteString("\n\n")
	s.WriteString(m.faintStyle.Render(explanation))
	s.WriteString("\n")

	for _, w := range m.warnings {
		s.WriteString("\n")
		s.WriteString(m.warningStyle.Render("⚠️  " + w.Message))
	}
	if len(m.warnings) > 0 {
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.faintStyle.Render("y: 执行, c: 复制, 其他任意键: 取消"))
	return s.String()
}

// AppOptions RunApp 的依赖
type AppOptions struct {
	Input     io.Reader
	Output    io.Writer
	Generator repl.Generator
	Executor  repl.Executor
	Printer   *repl.Printer
	Logger    *zap.Logger
}

// RunApp 运行单次模式。命令在界面退出后执行，输出与交互循环一致。
func RunApp(ctx context.Context, request string, opts AppOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Printer == nil {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		opts.Printer = repl.NewPrinter(out, repl.NewStyles(out, true), nil)
	}

	m := NewAppModel(ctx, opts.Generator, request)
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	finalModel, err := tea.NewProgram(m, programOpts...).Run()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("界面运行出错: %w", err)
	}

	appModel, ok := finalModel.(*AppModel)
	if !ok {
		return errors.New("界面返回了未知的状态")
	}
	logger.Debug("one-shot finished", zap.Stringer("state", appModel.state))

	return finish(ctx, appModel, opts)
}

// finish 根据界面退出时的状态输出结果或执行命令
func finish(ctx context.Context, m *AppModel, opts AppOptions) error {
	p := opts.Printer
	w := p.Writer()

	switch m.state {
	case StateApproved:
		p.Proposal(m.proposal, m.warnings)
		fmt.Fprintln(w)
		res, err := opts.Executor.Run(ctx, m.proposal.Command)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.ExecutionError(err)
			return err
		}
		p.Result(res)
	case StateCopied:
		fmt.Fprintf(w, "📋 已复制到剪贴板: \n  %s\n", m.proposal.Command)
	case StateNoCommand:
		p.Proposal(m.proposal, nil)
		p.NoCommandNotice()
	case StateError:
		var genErr *llm.GenerationError
		if errors.As(m.err, &genErr) {
			p.GenerationError(m.err)
		} else {
			fmt.Fprintln(w, m.err)
		}
		return m.err
	case StateCanceled:
		fmt.Fprintln(w, "操作已取消")
	}
	return nil
}
