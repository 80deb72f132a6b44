package generator

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/interfaces"
)

// NewContentGenerator creates the configured provider implementation.
func NewContentGenerator(config common.GeneratorConfig, logger arbor.ILogger) (interfaces.ContentGenerator, error) {
	logger.Info().Str("provider", config.Provider).Msg("Initializing content generator")

	switch config.Provider {
	case "claude":
		return NewClaudeService(config.Claude, logger)
	case "gemini":
		return NewGeminiService(config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", config.Provider)
	}
}
