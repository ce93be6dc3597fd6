// AngelaMos | 2026
// entity.go

package catalog

import (
	"errors"
	"time"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrToneNotFound     = errors.New("tone not found")
	ErrInputsNotFound   = errors.New("inputs not found")
)

// Category is a category joined with one of its locales.
type Category struct {
	ID          string    `db:"id"          json:"id"`
	Slug        string    `db:"slug"        json:"slug"`
	MaxTokens   *int      `db:"max_tokens"  json:"max_tokens,omitempty"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	Lang        string    `db:"lang"        json:"lang"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
}

// MaxTokensOr returns the category override, or fallback when unset.
func (c *Category) MaxTokensOr(fallback int) int {
	if c.MaxTokens != nil && *c.MaxTokens > 0 {
		return *c.MaxTokens
	}
	return fallback
}

type Prompt struct {
	ID             string `db:"id"              json:"id"`
	CategoryID     string `db:"category_id"     json:"category_id"`
	Lang           string `db:"lang"            json:"lang"`
	SystemTemplate string `db:"system_template" json:"system_template"`
}

type Tone struct {
	ID       string `db:"id"        json:"id"`
	Name     string `db:"name"      json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Input declares one field of a category form. DescriptionFormat is the
// localized text the submitted value is rendered into.
type Input struct {
	ID                string `db:"id"                 json:"id"`
	CategoryID        string `db:"category_id"        json:"category_id"`
	Lang              string `db:"lang"               json:"lang"`
	Name              string `db:"name"               json:"name"`
	DescriptionFormat string `db:"description_format" json:"description_format"`
	Position          int    `db:"position"           json:"position"`
}
