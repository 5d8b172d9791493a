package schemas

import (
	"encoding/json"
	"fmt"

	"gamecontent-server/internal/models"
)

// metadataKeys - какие поля ответа копируются в metadata записи (ключ metadata -> поле ответа).
var metadataKeys = map[models.ContentType]map[string]string{
	models.ContentTypeCharacter: {"characterClass": "class"},
	models.ContentTypeQuest:     {"difficulty": "difficulty", "questType": "type"},
	models.ContentTypeDialogue:  {"npcRole": "npcRole", "mood": "mood"},
	models.ContentTypeEnemy:     {"level": "level", "enemyType": "type"},
	models.ContentTypeItem:      {"itemType": "type", "rarity": "rarity"},
	models.ContentTypeWorld:     {"locationType": "type", "atmosphere": "atmosphere"},
	models.ContentTypeStory:     {"chapter": "chapter"},
}

// View декодирует структурированный ответ в типизированную структуру его типа.
func View(p *Structured) (any, error) {
	var target any
	switch p.Type {
	case models.ContentTypeCharacter:
		target = &Character{}
	case models.ContentTypeQuest:
		target = &Quest{}
	case models.ContentTypeDialogue:
		target = &Dialogue{}
	case models.ContentTypeEnemy:
		target = &Enemy{}
	case models.ContentTypeItem:
		target = &Item{}
	case models.ContentTypeWorld:
		target = &World{}
	case models.ContentTypeStory:
		target = &Story{}
	default:
		return nil, fmt.Errorf("no typed view for %q", p.Type)
	}
	if err := p.Decode(target); err != nil {
		return nil, err
	}
	return target, nil
}

// DeriveMetadata извлекает из ответа поля для фильтрации и статистики.
// В metadata попадают только присутствующие непустые поля.
func DeriveMetadata(p Payload) map[string]any {
	meta := make(map[string]any)
	structured, ok := p.(*Structured)
	if !ok {
		return meta
	}

	if view, err := View(structured); err == nil {
		copyFromView(meta, view)
		return meta
	}

	// Типизированный разбор не удался (например, число пришло словом):
	// берём строковые поля напрямую из объекта.
	obj, ok := structured.Object()
	if !ok {
		return meta
	}
	for metaKey, field := range metadataKeys[structured.Type] {
		switch v := obj[field].(type) {
		case string:
			if v != "" {
				meta[metaKey] = v
			}
		case json.Number:
			meta[metaKey] = numberValue(v)
		}
	}
	return meta
}

func copyFromView(meta map[string]any, view any) {
	set := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	switch v := view.(type) {
	case *Character:
		set("characterClass", v.Class)
	case *Quest:
		set("difficulty", v.Difficulty)
		set("questType", v.Type)
	case *Dialogue:
		set("npcRole", v.NPCRole)
		set("mood", v.Mood)
	case *Enemy:
		if v.Level != "" {
			meta["level"] = numberValue(v.Level)
		}
		set("enemyType", v.Type)
	case *Item:
		set("itemType", v.Type)
		set("rarity", v.Rarity)
	case *World:
		set("locationType", v.Type)
		set("atmosphere", v.Atmosphere)
	case *Story:
		set("chapter", v.Chapter)
	}
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
