package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/s-archdev/mithra-llm/internal/config"
	"github.com/s-archdev/mithra-llm/internal/llm/providers"
)

type fakeProvider struct {
	reply   string
	err     error
	panics  bool
	enabled bool
	block   bool

	gotSystem string
	gotUser   string
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	if f.panics {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Enabled() bool { return f.enabled }

func newTestGenerator(t *testing.T, p Provider, cfg GeneratorConfig) *Generator {
	t.Helper()
	g, err := NewGenerator(p, cfg)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestGenerateSendsSystemPromptAndRequest(t *testing.T) {
	p := &fakeProvider{enabled: true, reply: `{"command":"ls","explanation":"list"}`}
	g := newTestGenerator(t, p, GeneratorConfig{SystemPrompt: "be safe"})

	got, err := g.Generate(context.Background(), "show files")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Command != "ls" || got.Explanation != "list" {
		t.Fatalf("proposal = %+v", got)
	}
	if p.gotSystem != "be safe" || p.gotUser != "show files" {
		t.Fatalf("exchange = (%q, %q)", p.gotSystem, p.gotUser)
	}
}

func TestGenerateForwardsWhitespaceRequest(t *testing.T) {
	p := &fakeProvider{enabled: true, reply: `{"command":"","explanation":"nothing asked"}`}
	g := newTestGenerator(t, p, GeneratorConfig{})

	if _, err := g.Generate(context.Background(), "   "); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.calls != 1 || p.gotUser != "   " {
		t.Fatalf("whitespace request should be forwarded unchanged, got %q (%d calls)", p.gotUser, p.calls)
	}
}

func TestGenerateDefaultSystemPrompt(t *testing.T) {
	p := &fakeProvider{enabled: true, reply: `{}`}
	g := newTestGenerator(t, p, GeneratorConfig{})

	if _, err := g.Generate(context.Background(), "x"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{`"command"`, `"explanation"`, "privilege escalation", "JSON"} {
		if !strings.Contains(p.gotSystem, want) {
			t.Fatalf("default system prompt missing %q:\n%s", want, p.gotSystem)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantKind GenerationErrorKind
		wantRaw  string
	}{
		{
			name:     "unparsable reply",
			provider: &fakeProvider{enabled: true, reply: "run ls please"},
			wantKind: ErrUnparsable,
			wantRaw:  "run ls please",
		},
		{
			name:     "invalid json",
			provider: &fakeProvider{enabled: true, reply: `{"command":"ls",}`},
			wantKind: ErrInvalidJSON,
			wantRaw:  `{"command":"ls",}`,
		},
		{
			name:     "backend error",
			provider: &fakeProvider{enabled: true, err: errors.New("connection refused")},
			wantKind: ErrBackend,
		},
		{
			name:     "provider disabled",
			provider: &fakeProvider{enabled: false},
			wantKind: ErrBackend,
		},
		{
			name:     "provider panics",
			provider: &fakeProvider{enabled: true, panics: true},
			wantKind: ErrBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, tt.provider, GeneratorConfig{})
			got, err := g.Generate(context.Background(), "anything")

			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want *GenerationError", err)
			}
			if genErr.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", genErr.Kind, tt.wantKind)
			}
			if genErr.Raw != tt.wantRaw {
				t.Fatalf("raw = %q, want %q", genErr.Raw, tt.wantRaw)
			}
			if got != (CommandProposal{}) {
				t.Fatalf("proposal = %+v, want zero value on error", got)
			}
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	p := &fakeProvider{enabled: true, block: true}
	g := newTestGenerator(t, p, GeneratorConfig{Timeout: 20 * time.Millisecond})

	_, err := g.Generate(context.Background(), "slow")

	var llmErr *LLMError
	if !errors.As(err, &llmErr) || llmErr.Type != ErrorTypeTimeout {
		t.Fatalf("err = %v, want timeout LLMError", err)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	p := &fakeProvider{enabled: true, block: true}
	g := newTestGenerator(t, p, GeneratorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled in chain", err)
	}
}

func TestNewGeneratorRequiresProvider(t *testing.T) {
	if _, err := NewGenerator(nil, GeneratorConfig{}); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"unauthorized", &providers.StatusError{Provider: "x", StatusCode: http.StatusUnauthorized}, ErrorTypeAuth},
		{"forbidden", &providers.StatusError{Provider: "x", StatusCode: http.StatusForbidden}, ErrorTypeAuth},
		{"rate limited", fmt.Errorf("wrap: %w", &providers.StatusError{Provider: "x", StatusCode: http.StatusTooManyRequests}), ErrorTypeQuota},
		{"server error", &providers.StatusError{Provider: "x", StatusCode: http.StatusInternalServerError}, ErrorTypeGeneral},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrorTypeNetwork},
		{"other", errors.New("weird"), ErrorTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Type != tt.want {
				t.Fatalf("Classify(%v).Type = %v, want %v", tt.err, got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("classified error should wrap the original")
			}
		})
	}

	if Classify(nil) != nil {
		t.Fatal("Classify(nil) should be nil")
	}
}

func TestHint(t *testing.T) {
	if Hint(NewAuthError("x", nil)) == "" {
		t.Fatal("auth error should have a hint")
	}
	if Hint(errors.New("plain")) != "" {
		t.Fatal("plain error should have no hint")
	}
}

func TestGenerateAgainstUnreachableOllama(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.DefaultConfig()
	cfg.LLM.Ollama.BaseURL = "http://" + addr

	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	g := newTestGenerator(t, provider, GeneratorConfig{})

	_, err = g.Generate(context.Background(), "list files")

	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Kind != ErrBackend {
		t.Fatalf("err = %v, want backend GenerationError", err)
	}
	var llmErr *LLMError
	if !errors.As(err, &llmErr) || llmErr.Type != ErrorTypeNetwork {
		t.Fatalf("err = %v, want network LLMError", err)
	}
}

func TestGenerateClassifiesGeminiAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.LLM.Provider = config.ProviderGemini
	cfg.LLM.Gemini.APIKey = "g-bad"
	cfg.LLM.Gemini.BaseURL = srv.URL

	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	g := newTestGenerator(t, provider, GeneratorConfig{})

	_, err = g.Generate(context.Background(), "list files")

	var llmErr *LLMError
	if !errors.As(err, &llmErr) || llmErr.Type != ErrorTypeAuth {
		t.Fatalf("err = %v, want auth LLMError", err)
	}
	if Hint(err) == "" {
		t.Fatal("auth failure should carry a hint")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "Ollama" || !p.Enabled() {
		t.Fatalf("default provider = %s (enabled=%v)", p.Name(), p.Enabled())
	}

	cfg.LLM.Provider = "bogus"
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	cfg.LLM.Provider = config.ProviderClaude
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected error for claude without api key")
	}
}
