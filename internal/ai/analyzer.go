// Package ai wraps the external reasoning service used for AI-assisted
// violation analysis. The backend is treated as unreliable, slow, and
// costly: calls are retried with bounded backoff and a failed file is
// skipped, never fatal to the scan.
package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/complyscan/complyscan/internal/cost"
	"github.com/complyscan/complyscan/internal/types"
)

const (
	defaultModel = "gemini-2.5-flash"
	maxRetries   = 2
	backoffBase  = 500 * time.Millisecond
)

// Analyzer produces candidate violations for one file. Every returned
// violation carries a confidence score in (0,100] and an LLM reasoning
// string. The usage of a successful call is fed to the cost governor.
type Analyzer interface {
	Analyze(ctx context.Context, code, filePath string, fw types.Framework, catalog []types.Control) ([]types.Violation, cost.Usage, error)
}

// GenAIAnalyzer implements Analyzer on the Google GenAI API.
type GenAIAnalyzer struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// Config for NewGenAIAnalyzer. Model defaults to gemini-2.5-flash.
type Config struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// NewGenAIAnalyzer creates an analyzer backed by the GenAI API.
func NewGenAIAnalyzer(ctx context.Context, cfg Config) (*GenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIAnalyzer{client: client, model: model, log: log}, nil
}

// Analyze sends one file to the reasoning service and parses candidate
// violations out of the response. Transient failures are retried up to
// maxRetries with doubling backoff; the last error is returned when all
// attempts fail.
func (a *GenAIAnalyzer) Analyze(ctx context.Context, code, filePath string, fw types.Framework, catalog []types.Control) ([]types.Violation, cost.Usage, error) {
	prompt := buildPrompt(code, filePath, fw, catalog)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			a.log.Debug("retrying AI analysis",
				zap.String("file", filePath),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, cost.Usage{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			lastErr = fmt.Errorf("GenAI call failed: %w", err)
			continue
		}

		usage := usageFromResponse(a.model, resp)
		vs, err := parseViolations(resp.Text(), filePath)
		if err != nil {
			// malformed response; the call was still billed
			lastErr = fmt.Errorf("malformed GenAI response for %s: %w", filePath, err)
			continue
		}
		return vs, usage, nil
	}
	return nil, cost.Usage{}, lastErr
}

// Close releases the underlying client.
func (a *GenAIAnalyzer) Close() error {
	return nil
}

func usageFromResponse(model string, resp *genai.GenerateContentResponse) cost.Usage {
	var u cost.Usage
	if resp == nil || resp.UsageMetadata == nil {
		return u
	}
	m := resp.UsageMetadata
	u.InputTokens = int64(m.PromptTokenCount)
	u.OutputTokens = int64(m.CandidatesTokenCount)
	u.CacheReadTokens = int64(m.CachedContentTokenCount)
	u.CostUSD = costUSD(model, u.InputTokens, u.OutputTokens, u.CacheReadTokens)
	return u
}
