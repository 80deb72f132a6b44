// -----------------------------------------------------------------------
// Claude content generator backed by the Anthropic Messages API.
// One API call per Generate; retries belong to the worker.
// -----------------------------------------------------------------------

package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/models"
)

// ClaudeService generates article text with Anthropic Claude models.
type ClaudeService struct {
	config    common.ProviderConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a Claude-backed generator from configuration.
func NewClaudeService(config common.ProviderConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set SCRIVO_CLAUDE_API_KEY, ANTHROPIC_API_KEY, or generator.claude.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	service := &ClaudeService{
		config:    config,
		logger:    logger,
		client:    client,
		timeout:   config.TimeoutDuration(),
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", service.timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude generator initialized")

	return service, nil
}

// Provider names the backing provider.
func (s *ClaudeService) Provider() string {
	return "claude"
}

// Generate makes a single Messages API call with a hard wall-clock budget
// and returns the raw model text.
func (s *ClaudeService) Generate(ctx context.Context, input models.JobInput, siteContext string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(input, siteContext))),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", s.wrapError(err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("empty response")}
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude generation completed")

	return response.String(), nil
}

// wrapError maps API failures onto the generator's failure categories.
func (s *ClaudeService) wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("%w after %s", ErrTimeout, s.timeout)}
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("%w: %v", ErrAuthFailed, err)}
		case http.StatusNotFound:
			return &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("%w: %s", ErrModelNotFound, s.config.Model)}
		case http.StatusTooManyRequests:
			return &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("%w: %v", ErrRateLimited, err)}
		}
	}
	return &GenerateError{Provider: s.Provider(), Err: err}
}
