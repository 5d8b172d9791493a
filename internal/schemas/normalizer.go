package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gamecontent-server/internal/models"
)

const (
	ParseErrorMarker = "Could not parse as JSON"
	parseErrorNote   = "AI returned non-JSON response"
)

// Payload - нормализованный ответ вендора. Реализации: *Structured, *Text, *ParseFailure.
type Payload interface {
	ContentType() models.ContentType
	isPayload()
}

// Structured - ответ, успешно разобранный как JSON.
type Structured struct {
	Type  models.ContentType
	Value any
}

// Text - неструктурированный ответ (general, text или режим freeform).
type Text struct {
	Type models.ContentType
	Text string
}

// ParseFailure - вендор вернул текст, который не удалось разобрать как JSON.
// Это значение, а не ошибка: запись всё равно сохраняется.
type ParseFailure struct {
	Type    models.ContentType
	RawText string
	Reason  string
}

func (p *Structured) ContentType() models.ContentType   { return p.Type }
func (p *Text) ContentType() models.ContentType         { return p.Type }
func (p *ParseFailure) ContentType() models.ContentType { return p.Type }

func (*Structured) isPayload()   {}
func (*Text) isPayload()         {}
func (*ParseFailure) isPayload() {}

// Object возвращает значение как JSON-объект, если это объект.
func (p *Structured) Object() (map[string]any, bool) {
	m, ok := p.Value.(map[string]any)
	return m, ok
}

// Decode перекладывает значение в типизированную структуру (Character, Quest, ...).
func (p *Structured) Decode(v any) error {
	raw, err := json.Marshal(p.Value)
	if err != nil {
		return fmt.Errorf("failed to re-encode %s payload: %w", p.Type, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", p.Type, err)
	}
	return nil
}

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
	objectSpan    = regexp.MustCompile(`(?s)\{.*\}`)
)

// Normalize превращает сырой ответ вендора в Payload. Никогда не паникует и не
// возвращает ошибку: неразбираемый текст становится *ParseFailure.
func Normalize(raw string, contentType models.ContentType, mode models.OutputMode) Payload {
	if contentType == "" {
		contentType = models.ContentTypeGeneral
	}
	trimmed := strings.TrimSpace(raw)
	if !contentType.IsStructured() || mode == models.OutputModeFreeform {
		return &Text{Type: contentType, Text: trimmed}
	}

	bounded := boundJSON(stripFences(trimmed))
	value, err := decodeStrict(bounded)
	if err == nil {
		return &Structured{Type: contentType, Value: value}
	}

	if span := objectSpan.FindString(raw); span != "" {
		if recovered, rerr := decodeStrict(span); rerr == nil {
			return &Structured{Type: contentType, Value: recovered}
		}
	}

	return &ParseFailure{Type: contentType, RawText: raw, Reason: err.Error()}
}

func stripFences(s string) string {
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// boundJSON отбрасывает комментарии вендора до первой открывающей и после
// последней закрывающей скобки.
func boundJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start > 0 {
		s = s[start:]
	}
	end := strings.LastIndexAny(s, "}]")
	if end > -1 && end < len(s)-1 {
		s = s[:end+1]
	}
	return s
}

// decodeStrict разбирает ровно одно JSON-значение. Числа сохраняются как
// json.Number, чтобы повторная сериализация не теряла точность.
func decodeStrict(s string) (any, error) {
	if s == "" {
		return nil, errors.New("unexpected end of JSON input")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	default:
		return nil, fmt.Errorf("expected a JSON object or array, got %T", v)
	}
}

// Render возвращает представление ответа, которое отдаётся клиенту и сохраняется.
func Render(p Payload) any {
	switch v := p.(type) {
	case *Structured:
		return v.Value
	case *Text:
		return map[string]any{"text": v.Text}
	case *ParseFailure:
		return map[string]any{
			"rawText":    v.RawText,
			"error":      ParseErrorMarker,
			"parseError": v.Reason,
			"note":       parseErrorNote,
			"type":       string(v.Type),
		}
	default:
		return nil
	}
}

// RenderJSON сериализует Render(p) для колонки response.
func RenderJSON(p Payload) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Render(p)); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// IsParseFailureDocument распознаёт fallback-объект, прочитанный из хранилища.
func IsParseFailureDocument(doc json.RawMessage) bool {
	var probe struct {
		Error   string  `json:"error"`
		RawText *string `json:"rawText"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return false
	}
	return probe.Error == ParseErrorMarker && probe.RawText != nil
}
