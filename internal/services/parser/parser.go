// -----------------------------------------------------------------------
// Output parser: splits delimited model output into article sections.
// The delimiters here are the contract the generation prompt asks the
// model to follow; a malformed response fails loudly rather than being
// patched up with defaults.
// -----------------------------------------------------------------------

package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/models"
)

// Section delimiters expected in raw model output, in order.
const (
	DelimiterMetaTitle       = "=== META TITLE ==="
	DelimiterMetaDescription = "=== META DESCRIPTION ==="
	DelimiterArticle         = "=== ARTICLE ==="
	DelimiterFAQ             = "=== FAQ ==="
	DelimiterSchema          = "=== SCHEMA ==="
)

// ParseError reports which section of the model output was malformed.
type ParseError struct {
	Section string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed model output: section %s: %s", e.Section, e.Reason)
}

// Service implements interfaces.OutputParser.
type Service struct{}

// NewService creates an output parser.
func NewService() interfaces.OutputParser {
	return &Service{}
}

// Parse splits the raw model output into its delimited sections. Every
// section must be present and non-empty, and the schema section must be
// valid JSON.
func (s *Service) Parse(raw string) (*models.JobResult, error) {
	delimiters := []string{
		DelimiterMetaTitle,
		DelimiterMetaDescription,
		DelimiterArticle,
		DelimiterFAQ,
		DelimiterSchema,
	}

	sections := make([]string, len(delimiters))
	remainder := raw
	for i, delim := range delimiters {
		start := strings.Index(remainder, delim)
		if start < 0 {
			return nil, &ParseError{Section: delim, Reason: "delimiter not found"}
		}
		if i > 0 {
			sections[i-1] = remainder[:start]
		}
		remainder = remainder[start+len(delim):]
	}
	sections[len(delimiters)-1] = remainder

	for i, section := range sections {
		sections[i] = strings.TrimSpace(section)
		if sections[i] == "" {
			return nil, &ParseError{Section: delimiters[i], Reason: "section is empty"}
		}
	}

	schemaJSON := stripCodeFence(sections[4])
	if err := validateSchemaJSON(schemaJSON); err != nil {
		return nil, &ParseError{Section: DelimiterSchema, Reason: err.Error()}
	}

	return &models.JobResult{
		MetaTitle:       sections[0],
		MetaDescription: sections[1],
		ContentMarkdown: sections[2],
		FAQRaw:          sections[3],
		SchemaJSON:      schemaJSON,
	}, nil
}

// validateSchemaJSON requires a JSON object or array, not a bare scalar.
func validateSchemaJSON(raw string) error {
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return fmt.Errorf("invalid JSON: %v", err)
	}
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		return nil
	default:
		return fmt.Errorf("schema must be a JSON object or array")
	}
}

// stripCodeFence removes a surrounding markdown code fence, which models
// add around JSON despite instructions.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
