package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal 判断输入输出是否都连着终端，决定单次模式用界面还是按行确认
func IsTerminal(in, out *os.File) bool {
	if in == nil || out == nil {
		return false
	}
	return term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd()))
}

// TerminalWidth 返回终端宽度，取不到时返回 fallback
func TerminalWidth(f *os.File, fallback int) int {
	if f == nil {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
