// -----------------------------------------------------------------------
// Gemini content generator backed by the Google GenAI API.
// -----------------------------------------------------------------------

package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/models"
	"google.golang.org/genai"
)

// GeminiService generates article text with Google Gemini models.
type GeminiService struct {
	config  common.ProviderConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiService creates a Gemini-backed generator from configuration.
func NewGeminiService(config common.ProviderConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set SCRIVO_GEMINI_API_KEY, GEMINI_API_KEY, or generator.gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: config.TimeoutDuration(),
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", service.timeout).
		Msg("Gemini generator initialized")

	return service, nil
}

// Provider names the backing provider.
func (s *GeminiService) Provider() string {
	return "gemini"
}

// Generate makes a single GenerateContent call with a hard wall-clock budget
// and returns the raw model text.
func (s *GeminiService) Generate(ctx context.Context, input models.JobInput, siteContext string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(buildPrompt(input, siteContext))},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if s.config.Temperature > 0 {
		config.Temperature = genai.Ptr(s.config.Temperature)
	}
	if s.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(s.config.MaxTokens)
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		return "", s.wrapError(err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("empty response")}
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini generation completed")

	return response.String(), nil
}

// wrapError maps API failures onto the generator's failure categories.
func (s *GeminiService) wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerateError{Provider: s.Provider(), Err: fmt.Errorf("%w after %s", ErrTimeout, s.timeout)}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
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
