package schemas

import (
	"encoding/json"

	"gamecontent-server/internal/models"
)

const ParseErrorMissing = "All fields (parse error)"

// Validation - результат проверки обязательных полей. Только рекомендательный.
type Validation struct {
	IsValid bool     `json:"isValid"`
	Missing []string `json:"missing"`
}

var requiredFields = map[models.ContentType][]string{
	models.ContentTypeCharacter: {"name", "class", "backstory"},
	models.ContentTypeQuest:     {"title", "description", "objectives"},
	models.ContentTypeDialogue:  {"npcName", "dialogueOptions"},
	models.ContentTypeEnemy:     {"name", "type", "stats"},
	models.ContentTypeItem:      {"name", "type", "rarity"},
	models.ContentTypeWorld:     {"name", "description"},
	models.ContentTypeStory:     {"title", "scene", "choices"},
}

// RequiredFields возвращает копию списка обязательных полей типа.
func RequiredFields(contentType models.ContentType) []string {
	return append([]string(nil), requiredFields[contentType]...)
}

// Validate проверяет наличие обязательных полей. ParseFailure сразу даёт
// isValid=false без чтения RawText.
func Validate(p Payload) Validation {
	switch v := p.(type) {
	case *ParseFailure:
		return Validation{IsValid: false, Missing: []string{ParseErrorMissing}}
	case *Structured:
		return validateStructured(v)
	default:
		return Validation{IsValid: true, Missing: []string{}}
	}
}

func validateStructured(p *Structured) Validation {
	required := requiredFields[p.Type]
	missing := []string{}
	obj, isObject := p.Object()
	for _, field := range required {
		if !isObject || isEmptyValue(obj[field]) {
			missing = append(missing, field)
		}
	}
	return Validation{IsValid: len(missing) == 0, Missing: missing}
}

// isEmptyValue повторяет правило "ложного" значения: отсутствие, null, "", false и 0.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	default:
		return false
	}
}
