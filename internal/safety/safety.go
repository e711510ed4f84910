// Package safety 对模型给出的命令做提示性检查。
// 检查结果只用于展示，执行与否始终由用户确认决定。
package safety

import (
	"regexp"
	"strings"
)

// Warning 一条风险提示
type Warning struct {
	Rule    string
	Message string
}

type rule struct {
	name    string
	message string
	pattern *regexp.Regexp
}

var rules = []rule{
	{
		name:    "privilege-escalation",
		message: "命令会提升权限 (sudo/su/doas)",
		pattern: regexp.MustCompile(`(^|[;&|(]\s*)(sudo|su|doas)(\s|$)`),
	},
	{
		name:    "recursive-delete",
		message: "命令会递归删除文件",
		pattern: regexp.MustCompile(`(^|[;&|(\s])rm\s+(-[a-zA-Z]*[rR][a-zA-Z]*|--recursive)`),
	},
	{
		name:    "format-filesystem",
		message: "命令会格式化文件系统或修改分区表",
		pattern: regexp.MustCompile(`(^|[;&|(\s])(mkfs(\.\w+)?|fdisk|parted|wipefs)(\s|$)`),
	},
	{
		name:    "raw-disk-write",
		message: "命令会直接写入块设备",
		pattern: regexp.MustCompile(`(\bdd\b.*\bof=/dev/|>\s*/dev/(sd|nvme|hd|disk|mmcblk))`),
	},
	{
		name:    "world-writable-root",
		message: "命令会把根目录设为所有人可写",
		pattern: regexp.MustCompile(`chmod\s+(-R\s+)?0?777\s+/(\s|$)`),
	},
	{
		name:    "fork-bomb",
		message: "命令看起来是 fork 炸弹",
		pattern: regexp.MustCompile(`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
	},
	{
		name:    "pipe-to-shell",
		message: "命令会把下载的内容直接交给 shell 执行",
		pattern: regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`),
	},
}

// Inspect 返回命令命中的所有风险提示，顺序固定，同一规则只出现一次
func Inspect(command string) []Warning {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	var warnings []Warning
	for _, r := range rules {
		if r.pattern.MatchString(command) {
			warnings = append(warnings, Warning{Rule: r.name, Message: r.message})
		}
	}
	return warnings
}
