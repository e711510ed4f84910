package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GeneratorConfig 构造 Generator 时显式传入的配置
type GeneratorConfig struct {
	// SystemPrompt 为空时使用 DefaultSystemPrompt
	SystemPrompt string
	// Timeout 为 0 时一直等待模型返回
	Timeout time.Duration
	Logger  *zap.Logger
}

// Generator 把自然语言请求翻译成 CommandProposal
type Generator struct {
	provider     Provider
	systemPrompt string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewGenerator 创建命令生成器
func NewGenerator(provider Provider, cfg GeneratorConfig) (*Generator, error) {
	if provider == nil {
		return nil, errors.New("LLM 提供商未初始化")
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt("", "")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		provider:     provider,
		systemPrompt: systemPrompt,
		timeout:      cfg.Timeout,
		logger:       logger,
	}, nil
}

// ProviderName 返回当前提供商名称
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}

// SystemPrompt 返回生效的系统提示词
func (g *Generator) SystemPrompt() string {
	return g.systemPrompt
}

// Generate 请求模型并解析回复。失败时返回 *GenerationError。
func (g *Generator) Generate(ctx context.Context, request string) (proposal CommandProposal, err error) {
	logger := g.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("provider", g.provider.Name()),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("provider panicked", zap.Any("panic", r))
			proposal = CommandProposal{}
			err = newBackendError(fmt.Errorf("provider panic: %v", r))
		}
	}()

	if !g.provider.Enabled() {
		return CommandProposal{}, newBackendError(fmt.Errorf("LLM 提供商 %s 未正确配置", g.provider.Name()))
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Debug("sending request", zap.String("request", request))

	reply, err := g.provider.Complete(ctx, g.systemPrompt, request)
	if err != nil {
		genErr := newBackendError(err)
		logger.Warn("backend failed", zap.Duration("elapsed", time.Since(start)), zap.Error(genErr))
		return CommandProposal{}, genErr
	}

	logger.Debug("received reply", zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(reply)))

	proposal, err = ParseProposal(reply)
	if err != nil {
		logger.Warn("reply not parsable", zap.Error(err), zap.String("raw", reply))
		return CommandProposal{}, err
	}
	return proposal, nil
}
