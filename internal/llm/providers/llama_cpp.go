package providers

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/s-archdev/mithra-llm/internal/config"
)

// NewLlamaCPPProvider 创建 Llama-cpp 提供商，使用 llama-server 的 /v1 兼容接口
func NewLlamaCPPProvider(cfg *config.LlamaCPPConfig, opts Options) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("Llama-cpp Base URL 未配置")
	}

	baseURL := normalizeBaseURL(cfg.BaseURL)
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}

	// llama-server 默认不校验 key
	clientConfig := openai.DefaultConfig("")
	clientConfig.BaseURL = baseURL

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		name:    "Llama-cpp",
		model:   cfg.Model,
		enabled: true,
		opts:    opts,
	}, nil
}
