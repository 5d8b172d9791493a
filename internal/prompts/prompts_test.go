package prompts_test

import (
	"testing"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineBuildStructured(t *testing.T) {
	engine := prompts.NewEngine(models.OutputModeStructured)

	for _, contentType := range models.StructuredTypes {
		t.Run(string(contentType), func(t *testing.T) {
			got := engine.Build(contentType, `a "fire" warrior`)
			assert.Contains(t, got, `"a "fire" warrior"`, "user text must be embedded verbatim in quotes")
			assert.Contains(t, got, "CRITICAL: You MUST return ONLY a valid JSON object")
			assert.Contains(t, got, "Return this EXACT structure:")
			assert.Contains(t, got, "{\n")
		})
	}

	character := engine.Build(models.ContentTypeCharacter, "x")
	for _, field := range []string{`"name"`, `"class"`, `"backstory"`, `"stats"`, `"charisma"`} {
		assert.Contains(t, character, field)
	}
}

func TestEngineBuildPassThrough(t *testing.T) {
	engine := prompts.NewEngine(models.OutputModeStructured)

	assert.Equal(t, "tell me a joke", engine.Build(models.ContentTypeGeneral, "tell me a joke"))
	assert.Equal(t, "raw", engine.Build("", "raw"))
	assert.Equal(t, "an image", engine.Build(models.ContentTypeImage, "an image"))
}

func TestEngineBuildFreeform(t *testing.T) {
	engine := prompts.NewEngine(models.OutputModeFreeform)
	assert.Equal(t, models.OutputModeFreeform, engine.Mode())

	got := engine.Build(models.ContentTypeQuest, "rescue the miller")
	assert.Contains(t, got, `"rescue the miller"`)
	assert.Contains(t, got, "- Objectives")
	assert.NotContains(t, got, "Return this EXACT structure")
	assert.NotEqual(t, prompts.SystemPrompt(models.OutputModeStructured), engine.SystemPrompt())
}

func TestEngineBuildIsDeterministic(t *testing.T) {
	a := prompts.NewEngine(models.OutputModeStructured)
	b := prompts.NewEngine(models.OutputModeStructured)
	assert.Equal(t, a.Build(models.ContentTypeEnemy, "slime"), b.Build(models.ContentTypeEnemy, "slime"))
}

func TestCatalogBatchPromptCycles(t *testing.T) {
	c := prompts.DefaultCatalog()

	assert.Equal(t, "hero with ice abilities", c.BatchPrompt("hero", "character", 0))
	assert.Equal(t, "hero with healing magic", c.BatchPrompt("hero", "character", 4))
	assert.Equal(t, "hero with ice abilities", c.BatchPrompt("hero", "character", 5))
	assert.Equal(t, "joke variation 2", c.BatchPrompt("joke", "general", 1))
}

func TestCatalogVariationPrompt(t *testing.T) {
	c := prompts.DefaultCatalog()

	assert.Equal(t, "orc but harder version", c.VariationPrompt("orc", "difficulty", 1))
	assert.Equal(t, "orc but in anime style", c.VariationPrompt("orc", "unknown-axis", 0))
	assert.True(t, c.HasVariationAxis("stats"))
	assert.False(t, c.HasVariationAxis("colour"))
}

func TestCatalogImagePrompts(t *testing.T) {
	c := prompts.DefaultCatalog()

	assert.Equal(t,
		"knight, pixel art game sprite, retro gaming style, clear pixels, high quality, professional game asset",
		c.EnhanceImagePrompt("knight", "pixel"))
	assert.Contains(t, c.EnhanceImagePrompt("knight", "oil"), "professional 2D game art")

	assert.Equal(t, "red potion, pixel art item icon, retro gaming style", c.AssetPrompt("item", "red potion", "pixel"))
	assert.Equal(t, "a game enemy, 2D game enemy design, menacing appearance", c.AssetPrompt("enemy", "", "2d"))
	assert.Equal(t, "castle, professional game art, high quality", c.AssetPrompt("building", "castle", "2d"))

	assert.Equal(t, "Create a quest in a ruins setting", c.WorldCategoryPrompt("quests", "ruins"))
}

func TestLoadCatalogOverridesDefaults(t *testing.T) {
	c, err := prompts.LoadCatalog("testdata/catalog.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hero as a desert nomad", c.BatchPrompt("hero", "character", 1))
	assert.Equal(t, "hero as a boss enemy", c.BatchPrompt("hero", "enemy", 0))
	assert.Contains(t, c.EnhanceImagePrompt("lake", "watercolor"), "soft watercolor painting")
	assert.Equal(t, "Design a landmark for a ruins realm", c.WorldCategoryPrompt("locations", "ruins"))

	_, err = prompts.LoadCatalog("testdata/missing.yaml")
	assert.Error(t, err)
}
