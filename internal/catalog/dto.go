// AngelaMos | 2026
// dto.go

package catalog

type CreateCategoryRequest struct {
	Slug        string `json:"slug"        validate:"required,min=2,max=64"`
	MaxTokens   *int   `json:"max_tokens"  validate:"omitempty,min=1,max=32768"`
	Lang        string `json:"lang"        validate:"required,bcp47_language_tag"`
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
}

type LocaleRequest struct {
	Lang        string `json:"lang"        validate:"required,bcp47_language_tag"`
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
}

type PromptRequest struct {
	Lang           string `json:"lang"            validate:"required,bcp47_language_tag"`
	SystemTemplate string `json:"system_template" validate:"required,max=8000"`
}

type InputRequest struct {
	Lang              string `json:"lang"               validate:"required,bcp47_language_tag"`
	Name              string `json:"name"               validate:"required,max=64"`
	DescriptionFormat string `json:"description_format" validate:"required,max=2000"`
	Position          int    `json:"position"           validate:"min=0"`
}

type ToneRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type CategoryDetail struct {
	Category
	Inputs []Input `json:"inputs"`
}
