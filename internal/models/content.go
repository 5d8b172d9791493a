package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType определяет тип генерируемого контента.
type ContentType string

const (
	ContentTypeCharacter    ContentType = "character"
	ContentTypeQuest        ContentType = "quest"
	ContentTypeDialogue     ContentType = "dialogue"
	ContentTypeEnemy        ContentType = "enemy"
	ContentTypeItem         ContentType = "item"
	ContentTypeWorld        ContentType = "world"
	ContentTypeStory        ContentType = "story"
	ContentTypeGeneral      ContentType = "general"
	ContentTypeImage        ContentType = "image"
	ContentTypeImageToImage ContentType = "image-to-image"
)

// StructuredTypes lists the content types that carry a declared output schema.
var StructuredTypes = []ContentType{
	ContentTypeCharacter,
	ContentTypeQuest,
	ContentTypeDialogue,
	ContentTypeEnemy,
	ContentTypeItem,
	ContentTypeWorld,
	ContentTypeStory,
}

var contentTypeAliases = map[string]ContentType{
	"":               ContentTypeGeneral,
	"text":           ContentTypeGeneral,
	"general":        ContentTypeGeneral,
	"character":      ContentTypeCharacter,
	"quest":          ContentTypeQuest,
	"dialogue":       ContentTypeDialogue,
	"enemy":          ContentTypeEnemy,
	"item":           ContentTypeItem,
	"world":          ContentTypeWorld,
	"worldbuilding":  ContentTypeWorld,
	"location":       ContentTypeWorld,
	"story":          ContentTypeStory,
	"storybeat":      ContentTypeStory,
	"image":          ContentTypeImage,
	"image-to-image": ContentTypeImageToImage,
}

// ParseContentType converts a client supplied type name into a ContentType.
// Empty input and "text" map to general.
func ParseContentType(s string) (ContentType, error) {
	t, ok := contentTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", NewValidationError(fmt.Sprintf("unknown content type %q", s))
	}
	return t, nil
}

// IsStructured reports whether the type has a declared JSON schema.
func (t ContentType) IsStructured() bool {
	for _, st := range StructuredTypes {
		if t == st {
			return true
		}
	}
	return false
}

// IsImage reports whether the type is produced by the image vendor.
func (t ContentType) IsImage() bool {
	return t == ContentTypeImage || t == ContentTypeImageToImage
}

// DefaultCategory returns the category used when the caller does not provide one.
func (t ContentType) DefaultCategory() string {
	switch t {
	case ContentTypeWorld:
		return "worldBuilding"
	case ContentTypeImageToImage:
		return "image"
	case "":
		return string(ContentTypeGeneral)
	default:
		return string(t)
	}
}

// GeneratedContent - сохранённая пара (prompt, response) с метаданными.
type GeneratedContent struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Prompt     string          `json:"prompt" db:"prompt"`
	Response   json.RawMessage `json:"response" db:"response"`
	Type       ContentType     `json:"type" db:"type"`
	Category   string          `json:"category" db:"category"`
	Metadata   map[string]any  `json:"metadata" db:"metadata"`
	Rating     *int            `json:"rating,omitempty" db:"rating"`
	Tags       []string        `json:"tags" db:"tags"`
	IsFavorite bool            `json:"isFavorite" db:"is_favorite"`
	UsageCount int             `json:"usageCount" db:"usage_count"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// Normalize заполняет значения по умолчанию перед сохранением.
func (c *GeneratedContent) Normalize() {
	if c.Type == "" {
		c.Type = ContentTypeGeneral
	}
	if c.Category == "" {
		c.Category = c.Type.DefaultCategory()
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	if _, ok := c.Metadata["validated"]; !ok {
		c.Metadata["validated"] = false
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
}

// ContentFilter - параметры выборки для списка контента.
type ContentFilter struct {
	Type     ContentType
	Category string
	Limit    int
}

// CategoryCount - агрегат количества записей по категории.
type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Count    int64  `json:"count" db:"count"`
}

// OutputMode задаёт, просим ли мы у вендора JSON по схеме или свободный текст.
type OutputMode string

const (
	OutputModeStructured OutputMode = "structured"
	OutputModeFreeform   OutputMode = "freeform"
)

// ParseOutputMode разбирает режим вывода, пустая строка означает structured.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputModeStructured:
		return OutputModeStructured, nil
	case OutputModeFreeform:
		return OutputModeFreeform, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown output mode %q", s))
	}
}
