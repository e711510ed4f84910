package providers

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/s-archdev/mithra-llm/internal/config"
)

// OpenAIProvider 基于 chat/completions 接口的提供商实现，
// OpenAI、Azure OpenAI 与 llama.cpp 共用
type OpenAIProvider struct {
	client   *openai.Client
	name     string
	model    string
	jsonMode bool
	enabled  bool
	opts     Options
}

// NewOpenAIProvider 创建 OpenAI 提供商
func NewOpenAIProvider(cfg *config.OpenAIConfig, opts Options) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API Key 未配置")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)

	// 设置自定义 BaseURL（如果提供）
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = normalizeBaseURL(cfg.BaseURL)
	}

	// 设置组织 ID（如果提供）
	if cfg.OrgID != "" {
		clientConfig.OrgID = cfg.OrgID
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		name:     "OpenAI",
		model:    model,
		jsonMode: cfg.JSONMode,
		enabled:  true,
		opts:     opts,
	}, nil
}

// Name 返回提供商名称
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Enabled 返回是否已正确配置
func (p *OpenAIProvider) Enabled() bool {
	return p.client != nil && p.enabled
}

// Complete 发送 system + user 两条消息，返回模型原始回复
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: p.opts.Temperature,
	}
	if p.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapOpenAIError(p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s API 返回空结果", p.name)
	}

	return nonEmptyReply(p.name, resp.Choices[0].Message.Content)
}

func wrapOpenAIError(name string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &StatusError{Provider: name, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &StatusError{Provider: name, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("%s API 调用失败: %w", name, err)
}
