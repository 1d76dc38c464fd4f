package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var promptTemplates = map[ContentType]string{
	ContentTypeOutline:            "Create a structured outline for a piece titled %q. Use short section headings with one-line summaries.",
	ContentTypeProductDescription: "Write a persuasive product description for %s. Highlight benefits over features and end with a call to action.",
	ContentTypeSocialCaption:      "Write a short, punchy social media caption about %s. Include a hook in the first sentence.",
	ContentTypeArticle:            "Write an informative article titled %q. Open with a strong lead paragraph and close with a takeaway.",
	ContentTypeEmail:              "Write a concise marketing email about %s. Start with a subject line, then the body.",
}

// The fallback only matters if validation is bypassed; requests with an
// unknown content type are rejected before a prompt is built.
const defaultPromptTemplate = "Write a piece of content about %s."

// PromptTemplate returns the template text for a content type.
func PromptTemplate(t ContentType) string {
	if tpl, ok := promptTemplates[t]; ok {
		return tpl
	}
	return defaultPromptTemplate
}

// BuildPrompt derives the prompt persisted on a content record. The
// derivation is deterministic: the same topic and content type always
// produce the same prompt.
func BuildPrompt(t ContentType, topic string) string {
	subject := strings.TrimSpace(topic)
	switch t {
	case ContentTypeOutline, ContentTypeArticle:
		// Title-oriented types get a title-cased subject.
		subject = cases.Title(language.Und).String(subject)
	}
	return fmt.Sprintf(PromptTemplate(t), subject)
}
