package generator

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scrivo/internal/models"
	"github.com/ternarybob/scrivo/internal/services/parser"
)

const systemPrompt = `You are an expert SEO content writer. You write accurate,
well-structured long-form articles grounded in the business context you are
given. You follow output format instructions exactly.`

// buildPrompt renders the user prompt for one article. The output template
// uses the parser's section delimiters so the two sides cannot drift.
func buildPrompt(input models.JobInput, siteContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write an SEO-optimized article about: %s\n\n", input.Topic)
	fmt.Fprintf(&b, "Target length: approximately %d words.\n", input.TargetLength)
	fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(input.Keywords, ", "))
	if input.Notes != "" {
		fmt.Fprintf(&b, "Additional instructions: %s\n", input.Notes)
	}

	fmt.Fprintf(&b, "\nBusiness context scraped from %s:\n---\n%s\n---\n", input.URL, siteContext)

	fmt.Fprintf(&b, `
Produce your answer using EXACTLY this structure, keeping every delimiter
line verbatim and in this order:

%s
<meta title, at most 60 characters, containing the primary keyword>
%s
<meta description, 140-160 characters>
%s
<the full article in Markdown with H2/H3 headings>
%s
<5 to 7 frequently asked questions, each "Q:" line followed by an "A:" line>
%s
<a single JSON-LD object of type Article for this content, raw JSON without
code fences>
`,
		parser.DelimiterMetaTitle,
		parser.DelimiterMetaDescription,
		parser.DelimiterArticle,
		parser.DelimiterFAQ,
		parser.DelimiterSchema,
	)

	return b.String()
}
