package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/s-archdev/mithra-llm/internal/llm/providers"
)

// LLMError 定义 LLM 后端相关错误类型
type LLMError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType 定义错误类型枚举
type ErrorType int

const (
	ErrorTypeAuth ErrorType = iota
	ErrorTypeTimeout
	ErrorTypeQuota
	ErrorTypeNetwork
	ErrorTypeGeneral
)

// Error 实现 error 接口
func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 支持错误链
func (e *LLMError) Unwrap() error {
	return e.Err
}

// NewAuthError 创建认证错误
func NewAuthError(msg string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeAuth,
		Message: msg,
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(msg string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeTimeout,
		Message: msg,
		Err:     err,
	}
}

// NewQuotaError 创建配额错误
func NewQuotaError(msg string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeQuota,
		Message: msg,
		Err:     err,
	}
}

// NewNetworkError 创建网络错误
func NewNetworkError(msg string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeNetwork,
		Message: msg,
		Err:     err,
	}
}

// NewGeneralError 创建一般错误
func NewGeneralError(msg string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeGeneral,
		Message: msg,
		Err:     err,
	}
}

// Classify 把提供商返回的错误归类为 LLMError
func Classify(err error) *LLMError {
	if err == nil {
		return nil
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewAuthError("认证失败", err)
		case http.StatusTooManyRequests:
			return NewQuotaError("请求过于频繁或配额不足", err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return NewTimeoutError("请求超时", err)
		default:
			return NewGeneralError("模型服务返回错误", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("请求超时", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewGeneralError("请求已取消", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("请求超时", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewNetworkError("无法连接模型服务", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewNetworkError("无法连接模型服务", err)
	}

	return NewGeneralError("模型服务出错", err)
}

// Hint 返回面向用户的处理建议
func Hint(err error) string {
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		return ""
	}
	switch llmErr.Type {
	case ErrorTypeAuth:
		return "请检查对应的 API KEY 配置"
	case ErrorTypeTimeout:
		return "请求超时，请检查模型服务是否正常"
	case ErrorTypeQuota:
		return "API 配额已用完或请求过多，请稍后再试"
	case ErrorTypeNetwork:
		return "网络连接失败，请确认模型服务已启动"
	default:
		return ""
	}
}

// GenerationErrorKind 命令生成失败的类别
type GenerationErrorKind int

const (
	// ErrUnparsable 回复中找不到 JSON 对象
	ErrUnparsable GenerationErrorKind = iota
	// ErrInvalidJSON 找到了花括号片段但无法解析
	ErrInvalidJSON
	// ErrBackend 调用模型服务失败
	ErrBackend
)

func (k GenerationErrorKind) String() string {
	switch k {
	case ErrUnparsable:
		return "unparsable"
	case ErrInvalidJSON:
		return "invalid_json"
	case ErrBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// GenerationError 命令生成失败，Raw 保留模型原始回复便于排查
type GenerationError struct {
	Kind GenerationErrorKind
	Raw  string
	Err  error
}

// Error 实现 error 接口
func (e *GenerationError) Error() string {
	var msg string
	switch e.Kind {
	case ErrUnparsable:
		msg = "模型回复中没有找到 JSON 对象"
	case ErrInvalidJSON:
		msg = "模型回复中的 JSON 无法解析"
	case ErrBackend:
		msg = "调用模型服务失败"
	default:
		msg = "生成命令失败"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 支持错误链
func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newUnparsableError(raw string) *GenerationError {
	return &GenerationError{Kind: ErrUnparsable, Raw: raw}
}

func newInvalidJSONError(raw string, err error) *GenerationError {
	return &GenerationError{Kind: ErrInvalidJSON, Raw: raw, Err: err}
}

func newBackendError(err error) *GenerationError {
	return &GenerationError{Kind: ErrBackend, Err: Classify(err)}
}
