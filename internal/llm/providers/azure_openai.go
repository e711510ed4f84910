package providers

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/s-archdev/mithra-llm/internal/config"
)

// NewAzureOpenAIProvider 创建 Azure OpenAI 提供商
func NewAzureOpenAIProvider(cfg *config.AzureOpenAIConfig, opts Options) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Azure OpenAI API Key 未配置")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("Azure OpenAI Base URL 未配置")
	}
	if cfg.DeploymentID == "" {
		return nil, fmt.Errorf("Azure OpenAI Deployment ID 未配置")
	}

	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	clientConfig.APIVersion = cfg.APIVersion
	if clientConfig.APIVersion == "" {
		clientConfig.APIVersion = "2023-12-01-preview"
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		name:   "Azure OpenAI",
		// Azure 使用 deployment ID 作为模型名
		model:    cfg.DeploymentID,
		jsonMode: true,
		enabled:  true,
		opts:     opts,
	}, nil
}
