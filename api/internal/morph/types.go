package morph

import (
	"encoding/json"
	"errors"
)

type Segment struct {
	Element string `json:"element"`
	Type    string `json:"type"` // Kök | Leksik Şəkilçi | Qrammatik Şəkilçi | Birləşdirici tire
}

// Analysis — провалидированный морфологический разбор одного слова.
// Необязательные поля сериализуются как null, а не пропускаются.
type Analysis struct {
	Word       string             `json:"word"`
	POS        string             `json:"pos"`
	Type       string             `json:"type"` // Sadə | Düzəltmə | Mürəkkəb
	Segments   []Segment          `json:"segments"`
	Usage      string             `json:"usage"` // Ümumi | Terminologiya
	Field      *string            `json:"field"`
	Etymology  *string            `json:"etymology"`
	Gloss      *string            `json:"gloss"`
	Features   map[string]*string `json:"features"`
	Definition *string            `json:"definition"`
}

// Failure — запись об ошибке разбора. Либо Item (элемент не прошёл валидацию),
// либо LLMOutput+InputWords (ответ модели не удалось разобрать целиком).
type Failure struct {
	Error      string          `json:"error"`
	Item       json.RawMessage `json:"item,omitempty"`
	LLMOutput  *string         `json:"llm_output,omitempty"`
	InputWords []string        `json:"input_words,omitempty"`
}

// Entry — один элемент ответа: ровно одно из Analysis/Failure.
type Entry struct {
	Analysis *Analysis
	Failure  *Failure
}

func OK(a Analysis) Entry { return Entry{Analysis: &a} }

func Failed(f Failure) Entry { return Entry{Failure: &f} }

func (e Entry) IsFailure() bool { return e.Failure != nil }

func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Analysis != nil:
		return json.Marshal(e.Analysis)
	case e.Failure != nil:
		return json.Marshal(e.Failure)
	default:
		return nil, errors.New("morph: empty entry")
	}
}

// UnmarshalJSON различает варианты по наличию ключа "error".
func (e *Entry) UnmarshalJSON(b []byte) error {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		var f Failure
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*e = Entry{Failure: &f}
		return nil
	}
	var a Analysis
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = Entry{Analysis: &a}
	return nil
}

// Analyses отбрасывает ошибки и возвращает только валидные разборы.
func Analyses(entries []Entry) []Analysis {
	out := make([]Analysis, 0, len(entries))
	for _, e := range entries {
		if e.Analysis != nil {
			out = append(out, *e.Analysis)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
