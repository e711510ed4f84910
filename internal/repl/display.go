package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/s-archdev/mithra-llm/internal/llm"
	"github.com/s-archdev/mithra-llm/internal/runner"
	"github.com/s-archdev/mithra-llm/internal/safety"
)

const (
	// NoCommand 模型没有给出命令时显示的占位
	NoCommand = "(no command)"
	// NoExplanation 模型没有给出说明时显示的占位
	NoExplanation = "(no explanation)"
)

// Styles 终端输出样式
type Styles struct {
	Title   lipgloss.Style
	Command lipgloss.Style
	Faint   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

// NewStyles 基于输出目标创建样式，color 为 false 时不输出任何转义序列
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Command: r.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		Faint:   r.NewStyle().Faint(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
		Success: r.NewStyle().Foreground(lipgloss.Color("46")),
	}
}

// Markdown 渲染命令说明
type Markdown struct {
	term *glamour.TermRenderer
}

// NewMarkdown 创建 Markdown 渲染器
func NewMarkdown(width int) (*Markdown, error) {
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{term: term}, nil
}

// Render 渲染失败时原样返回
func (m *Markdown) Render(text string) string {
	if m == nil {
		return text
	}
	out, err := m.term.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Printer 负责所有面向用户的输出
type Printer struct {
	w        io.Writer
	styles   Styles
	markdown *Markdown
}

// NewPrinter 创建 Printer，markdown 可以为 nil
func NewPrinter(w io.Writer, styles Styles, markdown *Markdown) *Printer {
	return &Printer{w: w, styles: styles, markdown: markdown}
}

// Writer 返回底层输出
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Proposal 显示命令、说明与风险提示
func (p *Printer) Proposal(proposal llm.CommandProposal, warnings []safety.Warning) {
	command := proposal.Command
	if strings.TrimSpace(command) == "" {
		command = NoCommand
	}
	explanation := proposal.Explanation
	if strings.TrimSpace(explanation) == "" {
		explanation = NoExplanation
	} else {
		explanation = p.markdown.Render(explanation)
	}

	fmt.Fprintf(p.w, "\n%s %s\n", p.styles.Title.Render("命令:"), p.styles.Command.Render(command))
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Title.Render("说明:"), explanation)
	for _, w := range warnings {
		fmt.Fprintf(p.w, "%s\n", p.styles.Warning.Render("⚠️  "+w.Message))
	}
}

// NoCommandNotice 提示没有可执行的命令
func (p *Printer) NoCommandNotice() {
	fmt.Fprintln(p.w, p.styles.Faint.Render("模型没有给出可执行的命令，请换个说法再试。"))
}

// GenerationError 显示生成失败原因，附带模型原始回复
func (p *Printer) GenerationError(err error) {
	fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf("生成命令失败: %v", err)))
	if hint := llm.Hint(err); hint != "" {
		fmt.Fprintln(p.w, p.styles.Faint.Render(hint))
	}

	var genErr *llm.GenerationError
	if errors.As(err, &genErr) && genErr.Raw != "" {
		fmt.Fprintln(p.w, p.styles.Faint.Render("模型原始回复:"))
		fmt.Fprintln(p.w, genErr.Raw)
	}
}

// Result 依次打印 stdout、stderr，非零退出码单独提示
func (p *Printer) Result(res *runner.Result) {
	if res.Stdout != "" {
		fmt.Fprint(p.w, res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			fmt.Fprintln(p.w)
		}
	}
	if res.Stderr != "" {
		// 逐行渲染，lipgloss 会把多行文本补齐成等宽块
		for _, line := range strings.Split(strings.TrimRight(res.Stderr, "\n"), "\n") {
			fmt.Fprintln(p.w, p.styles.Error.Render(line))
		}
	}
	if res.ExitCode != 0 {
		fmt.Fprintln(p.w, p.styles.Faint.Render(fmt.Sprintf("退出码: %d", res.ExitCode)))
	}
}

// ExecutionError 显示执行失败原因
func (p *Printer) ExecutionError(err error) {
	fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf("执行失败: %v", err)))
}

// Internal 显示循环中捕获到的意外错误
func (p *Printer) Internal(v any) {
	fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf("内部错误: %v", v)))
}
