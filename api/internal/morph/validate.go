package morph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// FieldError — одно нарушение схемы; Path в виде segments[2].type.
type FieldError struct {
	Path string
	Msg  string
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Path == "" {
			parts = append(parts, fe.Msg)
			continue
		}
		parts = append(parts, fe.Path+": "+fe.Msg)
	}
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d validation %s for Analysis: %s", len(e.Errors), noun, strings.Join(parts, "; "))
}

func (e *ValidationError) add(path, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

// Validator проверяет элемент ответа модели. В режиме Strict часть речи и
// признаки тоже сверяются с таблицами таксономии.
type Validator struct {
	Strict bool
}

// Validate разбирает один элемент массива. Типы не приводятся: число вместо строки считается ошибкой.
// Неизвестные ключи игнорируются.
func (v Validator) Validate(raw json.RawMessage) (Analysis, error) {
	verr := &ValidationError{}

	obj, ok := decodeObject(raw)
	if !ok {
		verr.add("", "input should be an object")
		return Analysis{}, verr
	}

	var a Analysis
	a.Word = requiredString(obj, "word", verr)
	before := len(verr.Errors)
	a.POS = requiredString(obj, "pos", verr)
	posOK := len(verr.Errors) == before
	a.Type = requiredLiteral(obj, "type", WordTypes, verr)
	a.Segments = segments(obj, verr)
	a.Usage = requiredLiteral(obj, "usage", Usages, verr)
	a.Field = optionalString(obj, "field", verr)
	a.Etymology = optionalString(obj, "etymology", verr)
	a.Gloss = optionalString(obj, "gloss", verr)
	a.Definition = optionalString(obj, "definition", verr)
	a.Features = features(obj, v.Strict, verr)

	if v.Strict && posOK && !IsPartOfSpeech(a.POS) {
		verr.add("pos", "input should be one of %s", quoteAll(PartsOfSpeech))
	}

	if len(verr.Errors) > 0 {
		return Analysis{}, verr
	}
	return a, nil
}

// ValidateAll превращает сырые элементы в записи ответа, сохраняя порядок.
func (v Validator) ValidateAll(items []json.RawMessage) []Entry {
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		a, err := v.Validate(item)
		if err != nil {
			out = append(out, Failed(Failure{
				Error: "Validation error: " + err.Error(),
				Item:  compact(item),
			}))
			continue
		}
		out = append(out, OK(a))
	}
	return out
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t, &m); err != nil {
		return nil, false
	}
	return m, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func asString(raw json.RawMessage) (string, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(t, &s); err != nil {
		return "", false
	}
	return s, true
}

func requiredString(obj map[string]json.RawMessage, key string, verr *ValidationError) string {
	raw, ok := obj[key]
	if !ok {
		verr.add(key, "field required")
		return ""
	}
	s, ok := asString(raw)
	if !ok {
		verr.add(key, "input should be a valid string")
		return ""
	}
	return s
}

func requiredLiteral(obj map[string]json.RawMessage, key string, allowed []string, verr *ValidationError) string {
	return literalAt(obj, key, key, allowed, verr)
}

func literalAt(obj map[string]json.RawMessage, key, path string, allowed []string, verr *ValidationError) string {
	raw, ok := obj[key]
	if !ok {
		verr.add(path, "field required")
		return ""
	}
	s, ok := asString(raw)
	if !ok || !slices.Contains(allowed, s) {
		verr.add(path, "input should be one of %s", quoteAll(allowed))
		return ""
	}
	return s
}

func optionalString(obj map[string]json.RawMessage, key string, verr *ValidationError) *string {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	s, ok := asString(raw)
	if !ok {
		verr.add(key, "input should be a valid string")
		return nil
	}
	return &s
}

func segments(obj map[string]json.RawMessage, verr *ValidationError) []Segment {
	raw, ok := obj["segments"]
	if !ok {
		verr.add("segments", "field required")
		return nil
	}
	var items []json.RawMessage
	if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '[' || json.Unmarshal(t, &items) != nil {
		verr.add("segments", "input should be a valid list")
		return nil
	}

	out := make([]Segment, 0, len(items))
	for i, item := range items {
		path := "segments[" + strconv.Itoa(i) + "]"
		seg, ok := decodeObject(item)
		if !ok {
			verr.add(path, "input should be an object")
			continue
		}
		var s Segment
		if r, ok := seg["element"]; !ok {
			verr.add(path+".element", "field required")
		} else if el, ok := asString(r); !ok {
			verr.add(path+".element", "input should be a valid string")
		} else {
			s.Element = el
		}
		s.Type = literalAt(seg, "type", path+".type", SegmentTypes, verr)
		out = append(out, s)
	}
	return out
}

func features(obj map[string]json.RawMessage, strict bool, verr *ValidationError) map[string]*string {
	raw, ok := obj["features"]
	if !ok || isNull(raw) {
		return nil
	}
	m, ok := decodeObject(raw)
	if !ok {
		verr.add("features", "input should be a valid dictionary")
		return nil
	}

	out := make(map[string]*string, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		r := m[k]
		path := "features." + k
		if isNull(r) {
			out[k] = nil
			continue
		}
		s, ok := asString(r)
		if !ok {
			verr.add(path, "input should be a valid string")
			continue
		}
		if strict {
			values, known := FeatureValues(k)
			if !known {
				verr.add(path, "unknown feature")
				continue
			}
			if !slices.Contains(values, s) {
				verr.add(path, "input should be one of %s", quoteAll(values))
				continue
			}
		}
		out[k] = &s
	}
	return out
}

func quoteAll(list []string) string {
	q := make([]string, len(list))
	for i, s := range list {
		q[i] = strconv.Quote(s)
	}
	return strings.Join(q, ", ")
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
