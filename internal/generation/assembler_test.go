// AngelaMos | 2026
// assembler_test.go

package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/provider"
)

func assembleFixture() AssembleParams {
	return AssembleParams{
		Category: &catalog.Category{ID: "cat-1", Description: "short product ads"},
		Prompt: &catalog.Prompt{
			SystemTemplate: "Write {{variants}} {{tone}} texts in {{language}} for {{description}}.",
		},
		Tone: &catalog.Tone{ID: "tone-1", Name: "friendly"},
		Inputs: []catalog.Input{
			{ID: "in-a", Name: "A", DescriptionFormat: "Product: {{value}}", Position: 1},
			{ID: "in-b", Name: "B", DescriptionFormat: "Audience", Position: 2},
			{ID: "in-c", Name: "C", DescriptionFormat: "Extra: {{value}}", Position: 3},
		},
		Lang:     "fr",
		Variants: 3,
	}
}

func TestAssemble_FollowsDeclaredInputOrder(t *testing.T) {
	p := assembleFixture()
	p.Values = map[string]string{"B": "students", "A": "green tea"}

	out, err := Assemble(p)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)

	user := out.Messages[1].Content
	assert.Equal(t, "Product: green tea\nAudience: students", user)
	assert.Less(t, strings.Index(user, "green tea"), strings.Index(user, "students"))

	require.Len(t, out.Values, 2)
	assert.Equal(t, "in-a", out.Values[0].InputID)
	assert.Equal(t, "in-b", out.Values[1].InputID)
}

func TestAssemble_SystemThenUser(t *testing.T) {
	p := assembleFixture()
	p.Values = map[string]string{"C": "free shipping"}

	out, err := Assemble(p)
	require.NoError(t, err)

	assert.Equal(t, provider.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, provider.RoleUser, out.Messages[1].Role)
	assert.Equal(t,
		"Write 3 friendly texts in French for short product ads.",
		out.Messages[0].Content,
	)
}

func TestAssemble_IgnoresBlankAndUnknownValues(t *testing.T) {
	p := assembleFixture()
	p.Values = map[string]string{"A": "   ", "Z": "ignored", "C": "gift wrap"}

	out, err := Assemble(p)
	require.NoError(t, err)

	assert.Equal(t, "Extra: gift wrap", out.Messages[1].Content)
	assert.Len(t, out.Values, 1)
}

func TestAssemble_Failures(t *testing.T) {
	p := assembleFixture()
	p.Values = map[string]string{"Z": "nothing matches"}
	_, err := Assemble(p)
	assert.ErrorIs(t, err, ErrEmptyInputs)

	p.Inputs = nil
	_, err = Assemble(p)
	assert.ErrorIs(t, err, catalog.ErrInputsNotFound)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "Persian", LanguageName("fa"))
	assert.Equal(t, "!!", LanguageName("!!"))
}
