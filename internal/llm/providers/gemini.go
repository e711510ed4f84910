package providers

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/s-archdev/mithra-llm/internal/config"
)

// GeminiProvider Gemini 提供商实现
type GeminiProvider struct {
	client *genai.Client
	config *config.GeminiConfig
	opts   Options
}

// NewGeminiProvider 创建 Gemini 提供商
func NewGeminiProvider(cfg *config.GeminiConfig, opts Options) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: cfg,
		opts:   opts,
	}, nil
}

// Name 返回提供商名称
func (p *GeminiProvider) Name() string {
	return "Gemini"
}

// Enabled 返回是否已正确配置
func (p *GeminiProvider) Enabled() bool {
	return p.client != nil && p.config.APIKey != ""
}

// Complete 通过 generateContent 获取回复，要求以 JSON 返回
func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(p.opts.Temperature),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code > 0 {
			return "", &StatusError{Provider: p.Name(), StatusCode: apiErr.Code, Err: err}
		}
		return "", fmt.Errorf("Gemini API 调用失败: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API 返回空结果")
	}

	return nonEmptyReply(p.Name(), resp.Text())
}
