package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veostudio/internal/providers/vertex"
)

const (
	geminiDefaultTimeout = 30 * time.Second
	geminiDefaultModel   = "gemini-2.0-flash"
)

// TokenSource yields a bearer token for the Vertex endpoints.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

type GeminiOptions struct {
	Tokens     TokenSource
	Endpoints  vertex.Endpoints
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
	// OnFallback is invoked whenever the raw prompt is returned.
	OnFallback func(reason string, err error)
}

// GeminiEnricher refines prompts with a Vertex hosted Gemini model.
type GeminiEnricher struct {
	tokens     TokenSource
	endpoints  vertex.Endpoints
	model      string
	client     *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
	onFallback func(reason string, err error)
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature    float64 `json:"temperature,omitempty"`
	CandidateCount int     `json:"candidateCount,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiEnricher(opts GeminiOptions) (*GeminiEnricher, error) {
	if opts.Tokens == nil {
		return nil, errors.New("gemini enricher requires a token source")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiEnricher{
		tokens:     opts.Tokens,
		endpoints:  opts.Endpoints,
		model:      model,
		client:     client,
		timeout:    timeout,
		logger:     opts.Logger,
		onFallback: opts.OnFallback,
	}, nil
}

func (g *GeminiEnricher) Enrich(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Prompt) == "" {
		return g.fallback(req, "empty_prompt", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	token, err := g.tokens.AcquireToken(ctx)
	if err != nil {
		return g.fallback(req, "token", err)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: BuildInstruction(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:    0.4,
			CandidateCount: 1,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return g.fallback(req, "marshal_request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoints.ModelURL(g.model, "generateContent"), &buf)
	if err != nil {
		return g.fallback(req, "build_request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return g.fallback(req, "http_request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return g.fallback(req, "http_status", errors.New(resp.Status))
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return g.fallback(req, "decode_response", err)
	}
	text := trimCodeFence(extractText(out))
	if text == "" {
		return g.fallback(req, "empty_response", nil)
	}

	g.logger.Debug().Str("model", g.model).Str("enriched_prompt", text).Msg("prompt: enriched")
	return Result{Prompt: text, Enriched: true}
}

func (g *GeminiEnricher) fallback(req Request, reason string, err error) Result {
	g.logger.Warn().Err(err).Str("reason", reason).Str("model", g.model).Msg("prompt: enrichment failed, using raw prompt")
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return Result{Prompt: req.Prompt, FallbackReason: reason}
}

func extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return strings.TrimSpace(part.Text)
			}
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

var _ Enricher = (*GeminiEnricher)(nil)
