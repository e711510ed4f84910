package llm

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// DefaultSystemPrompt 返回内置系统提示词，goos 与 shell 为空时取当前环境
func DefaultSystemPrompt(goos, shell string) string {
	if goos == "" {
		goos = runtime.GOOS
	}
	if shell == "" {
		shell = "sh"
	} else {
		shell = filepath.Base(shell)
	}

	return fmt.Sprintf(`You are a command-line expert for %s. Translate the user's request into a single safe shell command for %s.

Rules:
- Never include privilege escalation (sudo, su, doas) or destructive commands (recursive deletes, disk formatting, overwriting devices) unless the user explicitly asks for them.
- Prefer commands that are read-only or easy to undo.
- Respond with exactly one JSON object and nothing else:
{"command": "<the shell command>", "explanation": "<one or two sentences describing what it does>"}`, goos, shell)
}
