package providers

import (
	"fmt"
	"strings"
)

// Options 各提供商共用的生成参数
type Options struct {
	Temperature float32
}

// StatusError 表示后端返回了非 2xx 状态码
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error 实现 error 接口
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s 返回错误状态 %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s 返回错误状态 %d", e.Provider, e.StatusCode)
}

// Unwrap 支持错误链
func (e *StatusError) Unwrap() error {
	return e.Err
}

// normalizeBaseURL 补全协议并去掉末尾斜杠
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

func nonEmptyReply(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s API 返回空文本", provider)
	}
	return text, nil
}
