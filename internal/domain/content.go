package domain

import (
	"strings"
	"time"
)

// ContentType enumerates the supported generation categories.
type ContentType string

const (
	ContentTypeOutline            ContentType = "outline"
	ContentTypeProductDescription ContentType = "product-description"
	ContentTypeSocialCaption      ContentType = "social-caption"
	ContentTypeArticle            ContentType = "article"
	ContentTypeEmail              ContentType = "email"
)

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeOutline, ContentTypeProductDescription, ContentTypeSocialCaption, ContentTypeArticle, ContentTypeEmail:
		return true
	}
	return false
}

// JobStatus enumerates the durable generation lifecycle states on a
// content record.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// TopicMaxLength caps the user-supplied topic.
const TopicMaxLength = 500

// Content is a durable content item owned by a single user. The
// generated_content field is written only by a completing generation
// attempt; the content field is the user-editable working copy.
type Content struct {
	ID               string
	OwnerID          string
	Topic            string
	ContentType      ContentType
	Prompt           string
	GeneratedContent *string
	Content          *string
	JobID            string
	JobStatus        JobStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasGenerated reports whether a generation attempt has produced text
// for this record.
func (c *Content) HasGenerated() bool {
	return c.GeneratedContent != nil && *c.GeneratedContent != ""
}

// JobIDFor derives the deterministic job identifier for a content id.
// The mapping guarantees at most one addressable job per content item.
func JobIDFor(contentID string) string {
	return "content-" + contentID
}

// ValidateTopic checks the user-supplied topic against length bounds.
func ValidateTopic(topic string) error {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return ErrInvalidInput
	}
	if len(topic) > TopicMaxLength {
		return ErrInvalidInput
	}
	return nil
}
