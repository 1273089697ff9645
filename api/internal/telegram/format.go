package telegram

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"az-morph/api/internal/morph"
)

// Лимит Telegram 4096 символов, оставляем запас.
const maxMessageRunes = 3900

// FormatEntry — человекочитаемый разбор одной записи.
func FormatEntry(e morph.Entry) string {
	if e.IsFailure() {
		var b strings.Builder
		b.WriteString("❌ " + e.Failure.Error)
		if len(e.Failure.InputWords) > 0 {
			b.WriteString("\nSözlər: " + strings.Join(e.Failure.InputWords, ", "))
		}
		return b.String()
	}
	if e.Analysis == nil {
		return "❌ boş qeyd"
	}
	a := e.Analysis

	var b strings.Builder
	fmt.Fprintf(&b, "📖 %s — %s, %s", a.Word, a.POS, a.Type)
	if a.Usage == morph.UsageTerminology {
		b.WriteString(", termin")
		if a.Field != nil && *a.Field != "" {
			b.WriteString(" (" + *a.Field + ")")
		}
	}

	if len(a.Segments) > 0 {
		parts := make([]string, 0, len(a.Segments))
		for _, s := range a.Segments {
			parts = append(parts, fmt.Sprintf("%s[%s]", s.Element, s.Type))
		}
		b.WriteString("\nSeqmentlər: " + strings.Join(parts, " + "))
	}

	if feats := formatFeatures(a.Features); feats != "" {
		b.WriteString("\nƏlamətlər: " + feats)
	}
	if a.Etymology != nil && *a.Etymology != "" {
		b.WriteString("\nMənşə: " + *a.Etymology)
	}
	if a.Gloss != nil && *a.Gloss != "" {
		b.WriteString("\nGloss: " + *a.Gloss)
	}
	if a.Definition != nil && *a.Definition != "" {
		b.WriteString("\nTərif: " + *a.Definition)
	}
	return b.String()
}

func formatFeatures(f map[string]*string) string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if v != nil && *v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+*f[k])
	}
	return strings.Join(parts, ", ")
}

// FormatEntries склеивает разборы и режет результат на сообщения по лимиту.
// Одна запись не делится между сообщениями, если сама влезает в лимит.
func FormatEntries(entries []morph.Entry) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, e := range entries {
		block := truncate(FormatEntry(e), maxMessageRunes)
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(block) > maxMessageRunes {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
	}
	flush()
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
