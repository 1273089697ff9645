package telegram

import (
	"sync"
)

// chatEngines хранит выбранный через /engine провайдер: chatID -> "gemini" | "gpt".
type chatEngines struct {
	m sync.Map
}

func (c *chatEngines) set(chatID int64, name string) { c.m.Store(chatID, name) }

func (c *chatEngines) get(chatID int64) string {
	if v, ok := c.m.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}

func (c *chatEngines) clear(chatID int64) { c.m.Delete(chatID) }
