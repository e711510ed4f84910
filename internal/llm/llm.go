package llm

import (
	"context"
	"fmt"

	"github.com/s-archdev/mithra-llm/internal/config"
	"github.com/s-archdev/mithra-llm/internal/llm/providers"
)

// Provider 定义 LLM 提供商接口
type Provider interface {
	// Complete 发送一轮 system + user 对话，返回模型的原始文本回复
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name 返回提供商名称
	Name() string

	// Enabled 返回是否已正确配置
	Enabled() bool
}

// NewProvider 根据配置创建 LLM 提供商
func NewProvider(cfg *config.Config) (Provider, error) {
	opts := providers.Options{Temperature: cfg.LLM.Temperature}

	var provider Provider
	var err error

	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		provider, err = providers.NewOllamaProvider(&cfg.LLM.Ollama, opts)
	case config.ProviderOpenAI:
		provider, err = providers.NewOpenAIProvider(&cfg.LLM.OpenAI, opts)
	case config.ProviderAzureOpenAI:
		provider, err = providers.NewAzureOpenAIProvider(&cfg.LLM.AzureOpenAI, opts)
	case config.ProviderGemini:
		provider, err = providers.NewGeminiProvider(&cfg.LLM.Gemini, opts)
	case config.ProviderClaude:
		provider, err = providers.NewClaudeProvider(&cfg.LLM.Claude, opts)
	case config.ProviderLlamaCPP:
		provider, err = providers.NewLlamaCPPProvider(&cfg.LLM.LlamaCPP, opts)
	default:
		return nil, fmt.Errorf("不支持的 LLM 提供商: %s", cfg.LLM.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("初始化 LLM 提供商失败: %w", err)
	}

	return provider, nil
}
