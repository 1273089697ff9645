package morph

import (
	"encoding/json"
	"regexp"
	"strings"

	"az-morph/api/internal/util"
)

const (
	errNoArray     = "No JSON array in LLM response"
	errParseFailed = "JSON parsing failed: "
)

// жадный захват: от первой '[' до последней ']', точка матчит перевод строки
var arrayRe = regexp.MustCompile(`(?s)(\[.*\])`)

// ExtractArray достаёт JSON-массив из свободного ответа модели и чинит висячие запятые.
// При неудаче возвращает Failure с сырым текстом и исходными словами.
func ExtractArray(text string, words []string) ([]json.RawMessage, *Failure) {
	s := util.StripCodeFences(text)

	// модель иногда отвечает одиночным объектом на одно слово
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return []json.RawMessage{json.RawMessage(s)}, nil
	}

	payload := arrayRe.FindString(s)
	if payload == "" {
		return nil, &Failure{
			Error:      errNoArray,
			LLMOutput:  strPtr(text),
			InputWords: words,
		}
	}

	cleaned := RemoveTrailingCommas(payload)
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, &Failure{
			Error:      errParseFailed + err.Error(),
			LLMOutput:  strPtr(cleaned),
			InputWords: words,
		}
	}
	return items, nil
}

// RemoveTrailingCommas убирает запятые перед '}' или ']'. Содержимое строковых литералов не трогает.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
