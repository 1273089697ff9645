package morph

import (
	"bytes"
	"encoding/json"
	"strings"
)

const systemInstruction = "You are an expert Azerbaijani linguist and lexicographer.\n" +
	"You MUST return ONLY a JSON array matching the schema below. NO extra text.\n"

// ExampleJSON — эталонный разбор, который модель видит в промпте.
const ExampleJSON = `[{"word": "abadlıq-quruculuq", "pos": "İsim", "type": "Mürəkkəb", "segments": [` +
	`{"element": "abad", "type": "Kök"}, {"element": "-lıq", "type": "Leksik Şəkilçi"}, ` +
	`{"element": "-", "type": "Birləşdirici tire"}, {"element": "qur", "type": "Kök"}, ` +
	`{"element": "-ucu", "type": "Leksik Şəkilçi"}, {"element": "-luq", "type": "Leksik Şəkilçi"}], ` +
	`"usage": "Ümumi", "gloss": "development", "features": {"Number": "Sing"}, ` +
	`"definition": "Şəhərin bərpası üçün edilən işlər"}]`

var schemaText = buildSchema()

// Schema возвращает текст схемы ответа, собранный из таблиц таксономии.
func Schema() string { return schemaText }

func buildSchema() string {
	var b strings.Builder
	b.WriteString("\n[\n  {\n")
	b.WriteString(`    "word": "<string>",` + "\n")
	b.WriteString(`    "pos": "<one of: ` + strings.Join(PartsOfSpeech, ",") + `>",` + "\n")
	b.WriteString(`    "type": "<one of: ` + strings.Join(WordTypes, ",") + `>",` + "\n")
	b.WriteString(`    "segments": [` + "\n")
	b.WriteString(`      { "element": "<string>", "type": "<` + strings.Join(SegmentTypes, "|") + `>" },` + "\n")
	b.WriteString("      ...\n    ],\n")
	b.WriteString(`    "usage": "<` + strings.Join(Usages, "|") + `>",` + "\n")
	b.WriteString(`    "field": "<string> (only if usage is ` + UsageTerminology + `)",` + "\n")
	b.WriteString(`    "etymology": "<string> (etymology note)",` + "\n")
	b.WriteString(`    "gloss": "<string> (English gloss)",` + "\n")
	b.WriteString(`    "features": {` + "\n")
	for i, f := range Features {
		b.WriteString(`      "` + f.Name + `": "<` + strings.Join(f.Values, "|") + `>"`)
		if i < len(Features)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("    },\n")
	b.WriteString(`    "definition": "<string> (short Azerbaijani definition)"` + "\n")
	b.WriteString("  },\n  ...\n]\n")
	return b.String()
}

// SystemInstruction — роль и требование «только JSON».
func SystemInstruction() string { return systemInstruction }

// UserPrompt — схема, пример и список слов.
func UserPrompt(words []string) string {
	var b strings.Builder
	b.WriteString("Schema:")
	b.WriteString(schemaText)
	b.WriteString("\nExample:")
	b.WriteString(ExampleJSON)
	b.WriteString("\nAnalyze the following words and return your JSON array:\n")
	b.WriteString(wordsJSON(words))
	return b.String()
}

// BuildPrompt детерминирован: одинаковый список слов даёт байт-в-байт одинаковый промпт.
func BuildPrompt(words []string) string {
	return SystemInstruction() + UserPrompt(words)
}

// wordsJSON печатает массив в виде ["a", "b"] без экранирования не-ASCII.
func wordsJSON(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(w)
		parts = append(parts, strings.TrimSuffix(buf.String(), "\n"))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
