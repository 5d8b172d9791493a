package schemas_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/schemas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderString(t *testing.T, p schemas.Payload) string {
	t.Helper()
	raw, err := schemas.RenderJSON(p)
	require.NoError(t, err)
	return string(raw)
}

func TestNormalizeValidJSONIsLossless(t *testing.T) {
	inputs := []string{
		`{"name":"Ember","class":"warrior","backstory":"Born in ash.","stats":{"health":100,"agility":70.5}}`,
		`{"title":"Lost Ring","objectives":[{"task":"find","completed":false}],"rewards":{"gold":12345678901234567}}`,
		`[{"npcLine":"hi"},{"npcLine":"bye"}]`,
		`{"nested":{"deep":[1,2,{"x":null}]},"unicode":"héros <b>"}`,
	}
	for _, in := range inputs {
		p := schemas.Normalize(in, models.ContentTypeCharacter, models.OutputModeStructured)
		require.IsType(t, &schemas.Structured{}, p, in)
		assert.JSONEq(t, in, renderString(t, p))
	}
}

func TestNormalizeStripsFences(t *testing.T) {
	plain := schemas.Normalize(`{"a":1}`, models.ContentTypeItem, models.OutputModeStructured)
	variants := []string{
		"```json\n{\"a\":1}\n```",
		"```JSON\n{\"a\":1}```",
		"```\n{\"a\":1}\n```",
		"  \n```json {\"a\":1} ```  ",
	}
	for _, v := range variants {
		got := schemas.Normalize(v, models.ContentTypeItem, models.OutputModeStructured)
		assert.Equal(t, plain, got, v)
	}
}

func TestNormalizeBoundsSurroundingProse(t *testing.T) {
	raw := "Sure! Here is your item:\n{\"name\":\"Sword\",\"type\":\"weapon\"}\nHope you like it."
	p := schemas.Normalize(raw, models.ContentTypeItem, models.OutputModeStructured)

	s, ok := p.(*schemas.Structured)
	require.True(t, ok)
	obj, ok := s.Object()
	require.True(t, ok)
	assert.Equal(t, "Sword", obj["name"])
}

func TestNormalizeRegexRecovery(t *testing.T) {
	// Закрывающая ] после объекта ломает строгий разбор, регулярка берёт {...}.
	raw := `Note [draft]: {"name":"Shade","type":"ghost","stats":{"health":5}} see [appendix]`
	p := schemas.Normalize(raw, models.ContentTypeEnemy, models.OutputModeStructured)

	s, ok := p.(*schemas.Structured)
	require.True(t, ok, "got %T", p)
	obj, _ := s.Object()
	assert.Equal(t, "Shade", obj["name"])
}

func TestNormalizeParseFailure(t *testing.T) {
	raw := "The character is named Ember and she is a warrior."
	p := schemas.Normalize(raw, models.ContentTypeCharacter, models.OutputModeStructured)

	failure, ok := p.(*schemas.ParseFailure)
	require.True(t, ok)
	assert.Equal(t, raw, failure.RawText)
	assert.NotEmpty(t, failure.Reason)

	rendered := schemas.Render(p).(map[string]any)
	assert.Equal(t, schemas.ParseErrorMarker, rendered["error"])
	assert.Equal(t, raw, rendered["rawText"])
	assert.Equal(t, "character", rendered["type"])

	doc, err := schemas.RenderJSON(p)
	require.NoError(t, err)
	assert.True(t, schemas.IsParseFailureDocument(doc))
	assert.False(t, schemas.IsParseFailureDocument(json.RawMessage(`{"name":"Ember"}`)))
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		"}",
		"{{{{",
		`{"name": "unterminated`,
		"[1, 2,",
		"```json\n```",
		"```",
		"null",
		"42",
		`"just a string"`,
		"}{",
		"][",
		strings.Repeat("{", 1000),
		"\x00\xff\xfe",
		"random prose with no braces at all",
	}
	for _, contentType := range models.StructuredTypes {
		for _, in := range inputs {
			var p schemas.Payload
			require.NotPanics(t, func() {
				p = schemas.Normalize(in, contentType, models.OutputModeStructured)
			}, in)
			require.NotNil(t, p)
			assert.Equal(t, contentType, p.ContentType(), in)
			assert.NotPanics(t, func() { schemas.Render(p) })
		}
	}
}

func TestNormalizeTextTypes(t *testing.T) {
	p := schemas.Normalize("  once upon a time \n", models.ContentTypeGeneral, models.OutputModeStructured)
	text, ok := p.(*schemas.Text)
	require.True(t, ok)
	assert.Equal(t, "once upon a time", text.Text)
	assert.Equal(t, map[string]any{"text": "once upon a time"}, schemas.Render(p))

	// В свободном режиме даже структурный тип не разбирается.
	p = schemas.Normalize(`{"name":"Ember"}`, models.ContentTypeCharacter, models.OutputModeFreeform)
	assert.IsType(t, &schemas.Text{}, p)
	assert.Equal(t, models.ContentTypeCharacter, p.ContentType())

	p = schemas.Normalize("hi", "", models.OutputModeStructured)
	assert.Equal(t, models.ContentTypeGeneral, p.ContentType())
}

func TestStructuredDecodeIntoTypedView(t *testing.T) {
	raw := "```json\n{\"name\":\"Ember\",\"class\":\"warrior\",\"backstory\":\"...\",\"stats\":{\"health\":100}}\n```"
	p := schemas.Normalize(raw, models.ContentTypeCharacter, models.OutputModeStructured).(*schemas.Structured)

	view, err := schemas.View(p)
	require.NoError(t, err)
	character := view.(*schemas.Character)
	assert.Equal(t, "Ember", character.Name)
	assert.Equal(t, json.Number("100"), character.Stats.Health)
}
