package prompts

import (
	"fmt"
	"strings"

	"gamecontent-server/internal/models"
)

const jsonDirective = "CRITICAL: You MUST return ONLY a valid JSON object. No markdown, no code blocks, no extra text."

const (
	structuredSystemPrompt = "You are a professional game content generator. Always return valid JSON objects without markdown code blocks or extra text. Never include ```json or ``` in your response."
	freeformSystemPrompt   = "You are a professional game content generator. Write vivid, well organised markdown with headings and bullet lists. Never wrap the answer in code blocks and never answer with JSON."
)

// TemplateFunc превращает текст пользователя в инструкцию для вендора.
type TemplateFunc func(userText string) string

// contentTemplate описывает один тип контента: вступление, схему JSON
// и список разделов для свободного режима.
type contentTemplate struct {
	framing  string
	schema   string
	sections []string
}

var contentTemplates = map[models.ContentType]contentTemplate{
	models.ContentTypeCharacter: {
		framing: "You are a professional game designer. Create a detailed game character based on this request: \"%s\"",
		schema: `{
  "name": "Character name",
  "class": "Character class/type",
  "backstory": "Detailed 3-4 sentence backstory",
  "personality": "Personality traits and quirks",
  "abilities": ["ability1", "ability2", "ability3"],
  "stats": {
    "health": 100,
    "strength": 75,
    "intelligence": 80,
    "agility": 70,
    "charisma": 65
  },
  "equipment": ["item1", "item2"],
  "weaknesses": "Character weaknesses",
  "motivation": "What drives this character"
}`,
		sections: []string{"Name", "Class", "Backstory", "Personality", "Abilities", "Stats (health, strength, intelligence, agility, charisma)", "Equipment", "Weaknesses", "Motivation"},
	},
	models.ContentTypeQuest: {
		framing: "You are a professional quest designer. Create an engaging game quest based on: \"%s\"",
		schema: `{
  "title": "Quest name",
  "type": "main",
  "difficulty": "medium",
  "description": "Engaging quest description",
  "objectives": [
    {"task": "objective 1", "completed": false},
    {"task": "objective 2", "completed": false}
  ],
  "rewards": {
    "experience": 500,
    "gold": 250,
    "items": ["reward item 1", "reward item 2"]
  },
  "npc": {
    "name": "Quest giver name",
    "location": "Where to find them",
    "dialogue": "What they say when giving quest"
  },
  "story": "Deeper narrative context",
  "tips": ["hint 1", "hint 2"]
}`,
		sections: []string{"Title", "Type", "Difficulty", "Description", "Objectives", "Rewards (experience, gold, items)", "Quest giver (name, location, dialogue)", "Story", "Tips"},
	},
	models.ContentTypeDialogue: {
		framing: "You are a professional game writer. Create natural NPC dialogue for: \"%s\"",
		schema: `{
  "npcName": "NPC name",
  "npcRole": "Role/occupation",
  "mood": "friendly",
  "location": "Where this dialogue happens",
  "dialogueOptions": [
    {
      "npcLine": "What NPC says",
      "playerChoices": [
        {"text": "Player option 1", "response": "NPC response to option 1"},
        {"text": "Player option 2", "response": "NPC response to option 2"}
      ]
    }
  ],
  "questHint": "Optional quest hint if relevant",
  "personality": "NPC personality description"
}`,
		sections: []string{"NPC name", "NPC role", "Mood", "Location", "Dialogue options with player choices and responses", "Quest hint", "Personality"},
	},
	models.ContentTypeWorld: {
		framing: "You are a professional world builder. Create a detailed game world/location based on: \"%s\"",
		schema: `{
  "name": "Location name",
  "type": "city",
  "description": "Vivid 3-4 sentence description",
  "atmosphere": "The feeling/mood of this place",
  "inhabitants": ["race/creature 1", "race/creature 2"],
  "pointsOfInterest": [
    {"name": "POI 1", "description": "What's special here"}
  ],
  "resources": ["resource 1", "resource 2"],
  "dangers": ["danger 1", "danger 2"],
  "lore": "Historical background",
  "climate": "Weather and environment",
  "economy": "What drives this place"
}`,
		sections: []string{"Name", "Type", "Description", "Atmosphere", "Inhabitants", "Points of interest", "Resources", "Dangers", "Lore", "Climate", "Economy"},
	},
	models.ContentTypeEnemy: {
		framing: "You are a professional game designer. Create a balanced game enemy based on: \"%s\"",
		schema: `{
  "name": "Enemy name",
  "type": "beast",
  "level": 10,
  "description": "Visual and behavioral description",
  "stats": {
    "health": 500,
    "attack": 75,
    "defense": 50,
    "speed": 60
  },
  "abilities": [
    {"name": "ability 1", "damage": 50, "cooldown": 5}
  ],
  "weaknesses": ["weakness 1", "weakness 2"],
  "resistances": ["resistance 1"],
  "loot": {
    "common": ["item 1", "item 2"],
    "rare": ["rare item 1"],
    "gold": "50-200"
  },
  "behavior": "How it fights",
  "location": "Where it's found"
}`,
		sections: []string{"Name", "Type", "Level", "Description", "Stats (health, attack, defense, speed)", "Abilities with damage and cooldown", "Weaknesses", "Resistances", "Loot (common, rare, gold)", "Behavior", "Location"},
	},
	models.ContentTypeItem: {
		framing: "You are a professional item designer. Create a game item based on: \"%s\"",
		schema: `{
  "name": "Item name",
  "type": "weapon",
  "rarity": "rare",
  "description": "Flavor text description",
  "stats": {
    "damage": 75,
    "defense": 0,
    "bonus": "+10 Strength"
  },
  "effects": ["effect 1", "effect 2"],
  "requirements": {
    "level": 10,
    "class": "any"
  },
  "value": 500,
  "weight": 5,
  "durability": 100,
  "lore": "Item backstory",
  "obtainedFrom": "How to get this item"
}`,
		sections: []string{"Name", "Type", "Rarity", "Description", "Stats (damage, defense, bonus)", "Effects", "Requirements (level, class)", "Value, weight and durability", "Lore", "How it is obtained"},
	},
	models.ContentTypeStory: {
		framing: "You are a professional narrative designer. Create a story moment based on: \"%s\"",
		schema: `{
  "title": "Story beat title",
  "chapter": "Chapter 1",
  "setting": "Where this happens",
  "characters": ["character 1", "character 2"],
  "conflict": "The main tension/problem",
  "scene": "Detailed narrative description",
  "choices": [
    {
      "option": "Player choice 1",
      "consequence": "What happens",
      "emotionalImpact": "How it affects story"
    }
  ],
  "mood": "tense",
  "foreshadowing": "Hints about future events"
}`,
		sections: []string{"Title", "Chapter", "Setting", "Characters", "Conflict", "Scene", "Player choices with consequences and emotional impact", "Mood", "Foreshadowing"},
	},
}

func (t contentTemplate) structured(userText string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(t.framing, userText))
	b.WriteString("\n\n")
	b.WriteString(jsonDirective)
	b.WriteString("\n\nReturn this EXACT structure:\n")
	b.WriteString(t.schema)
	return b.String()
}

func (t contentTemplate) freeform(userText string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(t.framing, userText))
	b.WriteString("\n\nWrite the result as readable markdown. Use a heading for each of these sections, in this order:\n")
	for _, s := range t.sections {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\nDo not return JSON and do not use code blocks.")
	return b.String()
}

// Engine - неизменяемая таблица шаблонов, собирается один раз при старте.
type Engine struct {
	mode      models.OutputMode
	templates map[models.ContentType]TemplateFunc
}

// NewEngine строит таблицу тип -> шаблон для выбранного режима вывода.
func NewEngine(mode models.OutputMode) *Engine {
	if mode != models.OutputModeFreeform {
		mode = models.OutputModeStructured
	}
	templates := make(map[models.ContentType]TemplateFunc, len(contentTemplates))
	for contentType, tpl := range contentTemplates {
		if mode == models.OutputModeFreeform {
			templates[contentType] = tpl.freeform
		} else {
			templates[contentType] = tpl.structured
		}
	}
	return &Engine{mode: mode, templates: templates}
}

// Mode возвращает режим вывода, под который собраны шаблоны.
func (e *Engine) Mode() models.OutputMode { return e.mode }

// Build возвращает инструкцию для вендора. Для типов без шаблона
// (general, text, пустой) текст пользователя возвращается без изменений.
func (e *Engine) Build(contentType models.ContentType, userText string) string {
	tpl, ok := e.templates[contentType]
	if !ok {
		return userText
	}
	return tpl(userText)
}

// SystemPrompt возвращает системное сообщение для режима движка.
func (e *Engine) SystemPrompt() string {
	return SystemPrompt(e.mode)
}

func SystemPrompt(mode models.OutputMode) string {
	if mode == models.OutputModeFreeform {
		return freeformSystemPrompt
	}
	return structuredSystemPrompt
}
