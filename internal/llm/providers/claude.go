package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/s-archdev/mithra-llm/internal/config"
)

// ClaudeProvider Claude 提供商实现
type ClaudeProvider struct {
	client *anthropic.Client
	config *config.ClaudeConfig
	opts   Options
}

// NewClaudeProvider 创建 Claude 提供商
func NewClaudeProvider(cfg *config.ClaudeConfig, opts Options) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Claude API Key 未配置")
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// 不做自动重试，失败直接交给用户
		option.WithMaxRetries(0),
	}

	// 设置自定义 BaseURL（如果提供）
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(options...)

	return &ClaudeProvider{
		client: &client,
		config: cfg,
		opts:   opts,
	}, nil
}

// Name 返回提供商名称
func (p *ClaudeProvider) Name() string {
	return "Claude"
}

// Enabled 返回是否已正确配置
func (p *ClaudeProvider) Enabled() bool {
	return p.client != nil && p.config.APIKey != ""
}

// Complete 发送 system + user，返回拼接后的文本回复
func (p *ClaudeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.config.Model
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Temperature: anthropic.Float(float64(p.opts.Temperature)),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
			return "", &StatusError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("Claude API 调用失败: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("Claude API 返回空结果")
	}

	// 提取响应文本
	var responseText strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			responseText.WriteString(content.Text)
		}
	}

	return nonEmptyReply(p.Name(), responseText.String())
}
