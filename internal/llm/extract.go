package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CommandProposal 模型给出的命令建议，两个字段始终是字符串
type CommandProposal struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
}

// ParseProposal 从自由文本回复中取出第一个能解析成 JSON 对象的片段
func ParseProposal(reply string) (CommandProposal, error) {
	text := stripCodeFence(reply)
	candidates := jsonObjectCandidates(text)
	if len(candidates) == 0 {
		// 有 { 且其后还有 }，但配不成对，按无效 JSON 处理
		first, last := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
		if first != -1 && first < last {
			var payload map[string]any
			err := json.Unmarshal([]byte(text[first:last+1]), &payload)
			if err == nil {
				err = errors.New("花括号不配对")
			}
			return CommandProposal{}, newInvalidJSONError(reply, err)
		}
		return CommandProposal{}, newUnparsableError(reply)
	}

	var firstErr error
	for _, candidate := range candidates {
		var payload map[string]any
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return CommandProposal{
			Command:     coerceString(payload["command"]),
			Explanation: coerceString(payload["explanation"]),
		}, nil
	}

	return CommandProposal{}, newInvalidJSONError(reply, firstErr)
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

// jsonObjectCandidates 按出现顺序返回所有平衡的 {...} 片段。
// 字符串内的花括号与转义字符不参与计数；未闭合的 { 跳过，从下一个字符继续找。
func jsonObjectCandidates(text string) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		rel := strings.IndexByte(text[pos:], '{')
		if rel == -1 {
			break
		}
		start := pos + rel
		end := matchingBrace(text, start)
		if end == -1 {
			pos = start + 1
			continue
		}
		out = append(out, text[start:end+1])
		pos = end + 1
	}
	return out
}

// matchingBrace 返回与 text[start] 处 { 配对的 } 下标，找不到返回 -1
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
