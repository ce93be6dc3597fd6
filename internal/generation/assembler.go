// AngelaMos | 2026
// assembler.go

package generation

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/provider"
)

const (
	placeholderLanguage    = "{{language}}"
	placeholderDescription = "{{description}}"
	placeholderTone        = "{{tone}}"
	placeholderVariants    = "{{variants}}"
	placeholderValue       = "{{value}}"
)

type AssembleParams struct {
	Category *catalog.Category
	Prompt   *catalog.Prompt
	Tone     *catalog.Tone
	Inputs   []catalog.Input
	Values   map[string]string
	Lang     string
	Variants int
}

// Assembled is the ordered message pair plus the values that made it
// into the user message.
type Assembled struct {
	Messages []provider.Message
	Values   InputValues
}

// Assemble builds exactly one system message followed by one user
// message. Input lines follow the declared input order, not the order
// of the submitted values.
func Assemble(p AssembleParams) (*Assembled, error) {
	if len(p.Inputs) == 0 {
		return nil, catalog.ErrInputsNotFound
	}

	system := strings.NewReplacer(
		placeholderLanguage, LanguageName(p.Lang),
		placeholderDescription, p.Category.Description,
		placeholderTone, p.Tone.Name,
		placeholderVariants, strconv.Itoa(p.Variants),
	).Replace(p.Prompt.SystemTemplate)

	lines := make([]string, 0, len(p.Inputs))
	values := make(InputValues, 0, len(p.Inputs))
	for _, in := range p.Inputs {
		value := strings.TrimSpace(p.Values[in.Name])
		if value == "" {
			continue
		}
		lines = append(lines, formatInput(in.DescriptionFormat, value))
		values = append(values, InputValue{InputID: in.ID, Name: in.Name, Value: value})
	}

	if len(lines) == 0 {
		return nil, ErrEmptyInputs
	}

	return &Assembled{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: system},
			{Role: provider.RoleUser, Content: strings.Join(lines, "\n")},
		},
		Values: values,
	}, nil
}

func formatInput(format, value string) string {
	if strings.Contains(format, placeholderValue) {
		return strings.ReplaceAll(format, placeholderValue, value)
	}
	return format + ": " + value
}

// LanguageName renders a language tag in English, falling back to the
// raw tag when it cannot be resolved.
func LanguageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return lang
}
