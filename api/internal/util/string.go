package util

import "strings"

// StripCodeFences снимает markdown-обёртку ```json … ```.
// Если блок кода стоит после преамбулы, берётся содержимое первого блока.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	i := strings.Index(s, "```")
	if i < 0 {
		return s
	}
	if j := strings.LastIndex(s, "```"); j == i && i > 0 {
		// только закрывающий ``` без открывающего
		return strings.TrimSpace(s[:i])
	}
	s = s[i+3:]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && nl < 20 && !strings.ContainsAny(s[:nl], "[{") {
		s = s[nl+1:] // язык блока: json, JSON, ...
	}
	if j := strings.Index(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}

// Words разбивает текст на строки, обрезает пробелы и выбрасывает пустые.
func Words(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if w := strings.TrimSpace(l); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// CleanWords обрезает пробелы и выбрасывает пустые элементы, порядок и дубли сохраняются.
func CleanWords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
