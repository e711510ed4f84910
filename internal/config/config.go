package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/s-archdev/mithra-llm/internal/runner"
)

// LLMProvider 定义支持的 LLM 提供商类型
type LLMProvider string

const (
	ProviderOllama      LLMProvider = "ollama"
	ProviderOpenAI      LLMProvider = "openai"
	ProviderAzureOpenAI LLMProvider = "azure-openai"
	ProviderGemini      LLMProvider = "gemini"
	ProviderClaude      LLMProvider = "claude"
	ProviderLlamaCPP    LLMProvider = "llama-cpp"
)

// Providers 列出全部受支持的提供商
var Providers = []LLMProvider{
	ProviderOllama,
	ProviderOpenAI,
	ProviderAzureOpenAI,
	ProviderGemini,
	ProviderClaude,
	ProviderLlamaCPP,
}

const (
	appName        = "mithra"
	configFileName = "config"
	envPrefix      = "MITHRA"
	redactedValue  = "********"
)

// LLMConfig LLM 配置结构
type LLMConfig struct {
	Provider LLMProvider `mapstructure:"provider" yaml:"provider"`

	// SystemPrompt 为空时使用内置提示词
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`

	// Timeout 单位为秒，0 表示一直等待模型返回
	Timeout int `mapstructure:"timeout" yaml:"timeout"`

	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`

	Ollama      OllamaConfig      `mapstructure:"ollama" yaml:"ollama"`
	OpenAI      OpenAIConfig      `mapstructure:"openai" yaml:"openai"`
	AzureOpenAI AzureOpenAIConfig `mapstructure:"azure_openai" yaml:"azure_openai"`
	Gemini      GeminiConfig      `mapstructure:"gemini" yaml:"gemini"`
	Claude      ClaudeConfig      `mapstructure:"claude" yaml:"claude"`
	LlamaCPP    LlamaCPPConfig    `mapstructure:"llama_cpp" yaml:"llama_cpp"`
}

// OllamaConfig Ollama 配置
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

// OpenAIConfig OpenAI 及兼容服务配置
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model    string `mapstructure:"model" yaml:"model"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	OrgID    string `mapstructure:"org_id" yaml:"org_id,omitempty"`
	JSONMode bool   `mapstructure:"json_mode" yaml:"json_mode"`
}

// AzureOpenAIConfig Azure OpenAI 配置
type AzureOpenAIConfig struct {
	APIKey       string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL      string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	DeploymentID string `mapstructure:"deployment_id" yaml:"deployment_id,omitempty"`
	APIVersion   string `mapstructure:"api_version" yaml:"api_version"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ClaudeConfig Claude 配置
type ClaudeConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model     string `mapstructure:"model" yaml:"model"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LlamaCPPConfig Llama-cpp 配置，走 llama-server 的 OpenAI 兼容接口
type LlamaCPPConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model,omitempty"`
}

// ShellConfig 命令执行配置
type ShellConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	Flag string `mapstructure:"flag" yaml:"flag"`
	// Timeout 单位为秒，0 表示不限制
	Timeout int `mapstructure:"timeout" yaml:"timeout"`
}

// UIConfig 终端展示配置
type UIConfig struct {
	Color          bool `mapstructure:"color" yaml:"color"`
	RenderMarkdown bool `mapstructure:"render_markdown" yaml:"render_markdown"`
}

// LogConfig 调试日志配置
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// Config 应用配置
type Config struct {
	LLM   LLMConfig   `mapstructure:"llm" yaml:"llm"`
	Shell ShellConfig `mapstructure:"shell" yaml:"shell"`
	UI    UIConfig    `mapstructure:"ui" yaml:"ui"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`

	// path 记录实际读取的配置文件，未读取时为空
	path string
}

// LoadOptions 命令行覆盖项
type LoadOptions struct {
	Path     string
	Provider string
	Model    string
	LogLevel string
	Verbose  bool
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout 不能为负数")
	}
	if c.Shell.Timeout < 0 {
		return fmt.Errorf("shell.timeout 不能为负数")
	}
	if strings.TrimSpace(c.Shell.Path) == "" {
		return fmt.Errorf("shell.path 不能为空")
	}
	return nil
}

// Validate 验证 LLM 配置
func (lc *LLMConfig) Validate() error {
	switch lc.Provider {
	case ProviderOllama:
		return lc.Ollama.Validate()
	case ProviderOpenAI:
		return lc.OpenAI.Validate()
	case ProviderAzureOpenAI:
		return lc.AzureOpenAI.Validate()
	case ProviderGemini:
		return lc.Gemini.Validate()
	case ProviderClaude:
		return lc.Claude.Validate()
	case ProviderLlamaCPP:
		return lc.LlamaCPP.Validate()
	default:
		return fmt.Errorf("不支持的 LLM 提供商: %s", lc.Provider)
	}
}

// Validate 验证 Ollama 配置
func (oc *OllamaConfig) Validate() error {
	if oc.BaseURL == "" {
		return fmt.Errorf("Ollama Base URL 不能为空")
	}
	if oc.Model == "" {
		return fmt.Errorf("Ollama Model 不能为空")
	}
	return nil
}

// Validate 验证 OpenAI 配置
func (oc *OpenAIConfig) Validate() error {
	// 自建兼容服务可以不带 key
	if oc.APIKey == "" && oc.BaseURL == "" {
		return fmt.Errorf("OpenAI API Key 不能为空")
	}
	if oc.Model == "" {
		return fmt.Errorf("OpenAI Model 不能为空")
	}
	return nil
}

// Validate 验证 Azure OpenAI 配置
func (ac *AzureOpenAIConfig) Validate() error {
	if ac.APIKey == "" {
		return fmt.Errorf("Azure OpenAI API Key 不能为空")
	}
	if ac.BaseURL == "" {
		return fmt.Errorf("Azure OpenAI Base URL 不能为空")
	}
	if ac.DeploymentID == "" {
		return fmt.Errorf("Azure OpenAI Deployment ID 不能为空")
	}
	return nil
}

// Validate 验证 Gemini 配置
func (gc *GeminiConfig) Validate() error {
	if gc.APIKey == "" {
		return fmt.Errorf("Gemini API Key 不能为空")
	}
	if gc.Model == "" {
		return fmt.Errorf("Gemini Model 不能为空")
	}
	return nil
}

// Validate 验证 Claude 配置
func (cc *ClaudeConfig) Validate() error {
	if cc.APIKey == "" {
		return fmt.Errorf("Claude API Key 不能为空")
	}
	if cc.Model == "" {
		return fmt.Errorf("Claude Model 不能为空")
	}
	return nil
}

// Validate 验证 Llama-cpp 配置
func (lc *LlamaCPPConfig) Validate() error {
	if lc.BaseURL == "" {
		return fmt.Errorf("Llama-cpp Base URL 不能为空")
	}
	return nil
}

// DefaultConfig 返回默认配置：本地 Ollama
func DefaultConfig() *Config {
	shellPath, shellFlag := runner.DefaultShell()
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Temperature: 0.2,
			Ollama: OllamaConfig{
				BaseURL: "http://127.0.0.1:11434",
				Model:   "llama3",
			},
			OpenAI: OpenAIConfig{
				Model:    "gpt-4o-mini",
				JSONMode: true,
			},
			AzureOpenAI: AzureOpenAIConfig{
				APIVersion: "2023-12-01-preview",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Claude: ClaudeConfig{
				Model:     "claude-3-haiku-20240307",
				MaxTokens: 1000,
			},
			LlamaCPP: LlamaCPPConfig{
				BaseURL: "http://127.0.0.1:8080",
			},
		},
		Shell: ShellConfig{
			Path: shellPath,
			Flag: shellFlag,
		},
		UI: UIConfig{
			Color: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path 返回实际加载的配置文件路径
func (c *Config) Path() string {
	return c.path
}

// ActiveModel 返回当前提供商使用的模型名
func (c *Config) ActiveModel() string {
	switch c.LLM.Provider {
	case ProviderOllama:
		return c.LLM.Ollama.Model
	case ProviderOpenAI:
		return c.LLM.OpenAI.Model
	case ProviderAzureOpenAI:
		return c.LLM.AzureOpenAI.DeploymentID
	case ProviderGemini:
		return c.LLM.Gemini.Model
	case ProviderClaude:
		return c.LLM.Claude.Model
	case ProviderLlamaCPP:
		return c.LLM.LlamaCPP.Model
	}
	return ""
}

// SetModel 覆盖当前提供商的模型名
func (c *Config) SetModel(model string) {
	switch c.LLM.Provider {
	case ProviderOllama:
		c.LLM.Ollama.Model = model
	case ProviderOpenAI:
		c.LLM.OpenAI.Model = model
	case ProviderAzureOpenAI:
		c.LLM.AzureOpenAI.DeploymentID = model
	case ProviderGemini:
		c.LLM.Gemini.Model = model
	case ProviderClaude:
		c.LLM.Claude.Model = model
	case ProviderLlamaCPP:
		c.LLM.LlamaCPP.Model = model
	}
}

// Redacted 返回隐藏密钥后的副本，用于展示
func (c *Config) Redacted() *Config {
	out := *c
	out.LLM.OpenAI.APIKey = redact(out.LLM.OpenAI.APIKey)
	out.LLM.AzureOpenAI.APIKey = redact(out.LLM.AzureOpenAI.APIKey)
	out.LLM.Gemini.APIKey = redact(out.LLM.Gemini.APIKey)
	out.LLM.Claude.APIKey = redact(out.LLM.Claude.APIKey)
	return &out
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return redactedValue
}

// YAML 序列化为 YAML 文本
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	return data, nil
}

// DefaultConfigPath 获取默认配置文件路径
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./mithra.yaml"
	}
	return filepath.Join(homeDir, ".config", appName, configFileName+".yaml")
}

// Load 按 默认值 -> 配置文件 -> 环境变量 -> 命令行 的顺序加载配置
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	bindEnv(v)

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.Path != "" {
			if opts.Path != "" && errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("配置文件不存在: %s", opts.Path)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	cfg.path = v.ConfigFileUsed()

	if opts.Provider != "" {
		cfg.LLM.Provider = LLMProvider(strings.ToLower(strings.TrimSpace(opts.Provider)))
	}
	if opts.Model != "" {
		cfg.SetModel(opts.Model)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Verbose {
		cfg.Log.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig 保存配置到文件
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	// 确保配置目录存在
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", string(d.LLM.Provider))
	v.SetDefault("llm.system_prompt", d.LLM.SystemPrompt)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.temperature", d.LLM.Temperature)

	v.SetDefault("llm.ollama.base_url", d.LLM.Ollama.BaseURL)
	v.SetDefault("llm.ollama.model", d.LLM.Ollama.Model)

	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.openai.org_id", "")
	v.SetDefault("llm.openai.json_mode", d.LLM.OpenAI.JSONMode)

	v.SetDefault("llm.azure_openai.api_key", "")
	v.SetDefault("llm.azure_openai.base_url", "")
	v.SetDefault("llm.azure_openai.deployment_id", "")
	v.SetDefault("llm.azure_openai.api_version", d.LLM.AzureOpenAI.APIVersion)

	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.gemini.base_url", "")

	v.SetDefault("llm.claude.api_key", "")
	v.SetDefault("llm.claude.model", d.LLM.Claude.Model)
	v.SetDefault("llm.claude.base_url", "")
	v.SetDefault("llm.claude.max_tokens", d.LLM.Claude.MaxTokens)

	v.SetDefault("llm.llama_cpp.base_url", d.LLM.LlamaCPP.BaseURL)
	v.SetDefault("llm.llama_cpp.model", "")

	v.SetDefault("shell.path", d.Shell.Path)
	v.SetDefault("shell.flag", d.Shell.Flag)
	v.SetDefault("shell.timeout", d.Shell.Timeout)

	v.SetDefault("ui.color", d.UI.Color)
	v.SetDefault("ui.render_markdown", d.UI.RenderMarkdown)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.verbose", d.Log.Verbose)
}

// bindEnv 绑定 MITHRA_ 前缀变量以及各提供商约定俗成的环境变量
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conventional := []struct {
		key    string
		envKey string
	}{
		{"llm.ollama.base_url", "OLLAMA_HOST"},
		{"llm.ollama.model", "OLLAMA_MODEL"},
		{"llm.openai.api_key", "OPENAI_API_KEY"},
		{"llm.openai.base_url", "OPENAI_BASE_URL"},
		{"llm.openai.org_id", "OPENAI_ORG_ID"},
		{"llm.azure_openai.api_key", "AZURE_OPENAI_API_KEY"},
		{"llm.azure_openai.base_url", "AZURE_OPENAI_BASE_URL"},
		{"llm.azure_openai.deployment_id", "AZURE_OPENAI_DEPLOYMENT_ID"},
		{"llm.azure_openai.api_version", "AZURE_OPENAI_API_VERSION"},
		{"llm.gemini.api_key", "GEMINI_API_KEY"},
		{"llm.gemini.model", "GEMINI_MODEL"},
		{"llm.gemini.base_url", "GEMINI_BASE_URL"},
		{"llm.claude.api_key", "ANTHROPIC_API_KEY"},
		{"llm.claude.model", "CLAUDE_MODEL"},
		{"llm.claude.base_url", "ANTHROPIC_BASE_URL"},
		{"llm.llama_cpp.base_url", "LLAMA_CPP_BASE_URL"},
		{"llm.llama_cpp.model", "LLAMA_CPP_MODEL"},
	}

	for _, c := range conventional {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(c.key))
		// 带前缀的变量优先
		_ = v.BindEnv(c.key, prefixed, c.envKey)
	}
}
