package prompts

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DefaultArtStyle      = "2d"
	DefaultVariationAxis = "style"
	genericAssetSubject  = "a game asset"
)

// Catalog хранит фразы-модификаторы. Это данные, а не логика:
// важен только детерминированный перебор по индексу.
type Catalog struct {
	BatchModifiers     map[string][]string          `yaml:"batchModifiers"`
	VariationModifiers map[string][]string          `yaml:"variationModifiers"`
	ArtStyles          map[string]string            `yaml:"artStyles"`
	AssetTemplates     map[string]map[string]string `yaml:"assetTemplates"`
	WorldCategories    map[string]string            `yaml:"worldCategories"`
}

var genericBatchModifiers = []string{"variation 1", "variation 2", "variation 3"}

// DefaultCatalog возвращает встроенный набор модификаторов.
func DefaultCatalog() *Catalog {
	return &Catalog{
		BatchModifiers: map[string][]string{
			"character": {"with ice abilities", "with fire powers", "as a stealthy rogue", "as a tank warrior", "with healing magic"},
			"enemy":     {"as a boss enemy", "as a common mob", "with ranged attacks", "with melee focus", "with magical abilities"},
			"quest":     {"as a main story quest", "as a side quest", "as a daily challenge", "with moral choices", "with time limit"},
			"item":      {"as a legendary item", "as a rare weapon", "as common loot", "with unique effect", "with set bonus"},
			"dialogue":  {"for a friendly NPC", "for a mysterious NPC", "for a merchant NPC", "for an aggressive NPC", "for a quest giver"},
			"world":     {"with dark atmosphere", "with vibrant colors", "with mysterious elements", "with dangerous areas", "with hidden secrets"},
			"story":     {"with dramatic tension", "with mystery elements", "with action focus", "with emotional depth", "with plot twist"},
		},
		VariationModifiers: map[string][]string{
			"style":       {"in anime style", "in realistic style", "in cartoon style", "in dark fantasy style"},
			"stats":       {"with higher stats", "with balanced stats", "with specialized stats", "with unique abilities"},
			"personality": {"with friendly personality", "with aggressive personality", "with mysterious personality", "with heroic personality"},
			"difficulty":  {"easier version", "harder version", "nightmare difficulty", "beginner friendly"},
		},
		ArtStyles: map[string]string{
			"2d":        "professional 2D game art, hand-painted style, clean lines",
			"3d":        "3D rendered game asset, realistic lighting, detailed textures",
			"anime":     "anime game art style, cel-shaded, vibrant colors",
			"pixel":     "pixel art game sprite, retro gaming style, clear pixels",
			"realistic": "photorealistic game graphics, high detail, professional quality",
		},
		AssetTemplates: map[string]map[string]string{
			"character": {
				"2d":    "%s, professional 2D game character art, hand-painted style, detailed design",
				"3d":    "%s, 3D game character model, realistic rendering, high quality",
				"anime": "%s, anime game character art, cel-shaded, vibrant colors",
				"pixel": "%s, pixel art character sprite, retro gaming style",
			},
			"scene": {
				"2d":        "%s, 2D game environment art, detailed background",
				"3d":        "%s, 3D game environment, realistic lighting",
				"realistic": "%s, photorealistic game environment, high detail",
			},
			"item": {
				"2d":    "%s, game item icon, clean design, professional quality",
				"3d":    "%s, 3D game item render, detailed textures",
				"pixel": "%s, pixel art item icon, retro gaming style",
			},
			"enemy": {
				"2d": "%s, 2D game enemy design, menacing appearance",
				"3d": "%s, 3D game enemy model, detailed and intimidating",
			},
		},
		WorldCategories: map[string]string{
			"characters": "Create a character for a %s game world",
			"quests":     "Create a quest in a %s setting",
			"enemies":    "Create an enemy for a %s game",
			"items":      "Create an item for a %s game world",
			"locations":  "Create a location in a %s game world",
		},
	}
}

// LoadCatalog читает YAML-файл и накладывает его поверх встроенных значений.
// Пустой путь возвращает встроенный каталог.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	var override Catalog
	if err := cleanenv.ReadConfig(path, &override); err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog %s: %w", path, err)
	}
	catalog.merge(&override)
	return catalog, nil
}

func (c *Catalog) merge(o *Catalog) {
	for k, v := range o.BatchModifiers {
		if len(v) > 0 {
			c.BatchModifiers[k] = v
		}
	}
	for k, v := range o.VariationModifiers {
		if len(v) > 0 {
			c.VariationModifiers[k] = v
		}
	}
	for k, v := range o.ArtStyles {
		if v != "" {
			c.ArtStyles[k] = v
		}
	}
	for k, styles := range o.AssetTemplates {
		if c.AssetTemplates[k] == nil {
			c.AssetTemplates[k] = make(map[string]string, len(styles))
		}
		for style, tpl := range styles {
			if strings.Contains(tpl, "%s") {
				c.AssetTemplates[k][style] = tpl
			}
		}
	}
	for k, v := range o.WorldCategories {
		if strings.Contains(v, "%s") {
			c.WorldCategories[k] = v
		}
	}
}

// BatchPrompt добавляет к базовому промту модификатор для позиции index (с нуля).
func (c *Catalog) BatchPrompt(base, contentType string, index int) string {
	list, ok := c.BatchModifiers[contentType]
	if !ok || len(list) == 0 {
		list = genericBatchModifiers
	}
	return base + " " + pick(list, index)
}

// VariationPrompt строит промт вариации: "<original> but <modifier>".
// Неизвестная ось заменяется на style.
func (c *Catalog) VariationPrompt(original, axis string, index int) string {
	list, ok := c.VariationModifiers[axis]
	if !ok || len(list) == 0 {
		list = c.VariationModifiers[DefaultVariationAxis]
	}
	return original + " but " + pick(list, index)
}

// HasVariationAxis сообщает, есть ли в каталоге такая ось вариаций.
func (c *Catalog) HasVariationAxis(axis string) bool {
	list, ok := c.VariationModifiers[axis]
	return ok && len(list) > 0
}

// EnhanceImagePrompt дополняет промт описанием художественного стиля.
func (c *Catalog) EnhanceImagePrompt(prompt, artStyle string) string {
	enhancer, ok := c.ArtStyles[artStyle]
	if !ok {
		enhancer = c.ArtStyles[DefaultArtStyle]
	}
	return fmt.Sprintf("%s, %s, high quality, professional game asset", prompt, enhancer)
}

// AssetPrompt строит промт для ассета, когда пользователь не передал свой.
func (c *Catalog) AssetPrompt(assetType, description, style string) string {
	if strings.TrimSpace(description) == "" {
		description = genericAssetSubject
		if assetType != "" {
			description = "a game " + assetType
		}
	}
	if tpl, ok := c.AssetTemplates[assetType][style]; ok {
		return fmt.Sprintf(tpl, description)
	}
	return description + ", professional game art, high quality"
}

// WorldCategoryPrompt подставляет тему в шаблон категории мира.
func (c *Catalog) WorldCategoryPrompt(category, theme string) string {
	tpl, ok := c.WorldCategories[category]
	if !ok {
		return fmt.Sprintf("Create a %s for a %s game world", strings.TrimSuffix(category, "s"), theme)
	}
	return fmt.Sprintf(tpl, theme)
}

func pick(list []string, index int) string {
	if index < 0 {
		index = -index
	}
	return list[index%len(list)]
}
