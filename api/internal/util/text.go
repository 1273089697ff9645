package util

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// SniffText сообщает, похоже ли содержимое на UTF-8 текст (а не картинку, PDF или бинарь).
// Пустой файл текстом считается.
func SniffText(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	if !utf8.Valid(b) {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(b), "text/")
}
