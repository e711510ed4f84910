package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/s-archdev/mithra-llm/internal/config"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaProvider 调用本地 Ollama 的 /api/chat 接口
type OllamaProvider struct {
	httpClient *http.Client
	baseURL    string
	config     *config.OllamaConfig
	opts       Options
}

// NewOllamaProvider 创建 Ollama 提供商
func NewOllamaProvider(cfg *config.OllamaConfig, opts Options) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("Ollama Model 未配置")
	}

	baseURL := normalizeBaseURL(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	return &OllamaProvider{
		// 不设超时，由调用方的 context 控制
		httpClient: &http.Client{},
		baseURL:    baseURL,
		config:     cfg,
		opts:       opts,
	}, nil
}

// Name 返回提供商名称
func (p *OllamaProvider) Name() string {
	return "Ollama"
}

// Enabled 返回是否已正确配置
func (p *OllamaProvider) Enabled() bool {
	return p.httpClient != nil && p.baseURL != "" && p.config.Model != ""
}

// Complete 以非流式、JSON 格式请求 /api/chat
func (p *OllamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: p.config.Model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": p.opts.Temperature},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("构建请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API 调用失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ollamaErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		statusErr := &StatusError{Provider: p.Name(), StatusCode: resp.StatusCode}
		if errResp.Error != "" {
			statusErr.Err = errors.New(errResp.Error)
		}
		return "", statusErr
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("解析 Ollama 响应失败: %w", err)
	}

	return nonEmptyReply(p.Name(), chatResp.Message.Content)
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}
