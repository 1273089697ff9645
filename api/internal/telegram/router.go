// Package telegram — чат-фронтенд: пользователь присылает слова, бот отвечает разбором.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"az-morph/api/internal/llm"
	"az-morph/api/internal/morph"
)

const (
	maxWordsPerMessage = 50
	analyzeTimeout     = 180 * time.Second
)

const helpText = "Göndər bir və ya bir neçə söz (boşluq və ya sətirlə ayrılmış), morfoloji təhlil qaytarım.\n" +
	"Komandalar: /help, /health, /engine {gemini|gpt}"

// Sender — часть *tgbotapi.BotAPI, которой пользуется роутер.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot      Sender
	Engines  *llm.Engines
	Analyzer *morph.Analyzer
	Log      *zap.Logger

	engines chatEngines
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(upd.Message)
		return
	}
	if strings.TrimSpace(upd.Message.Text) == "" {
		r.send(upd.Message.Chat.ID, "Mətn göndərin: bir sətirdə bir və ya bir neçə söz.")
		return
	}
	r.handleWords(ctx, upd.Message.Chat.ID, upd.Message.Text)
}

func (r *Router) HandleCommand(m *tgbotapi.Message) {
	cid := m.Chat.ID
	switch m.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, m.CommandArguments())
	default:
		r.send(cid, "Naməlum komanda. /help")
	}
}

// handleEngineCommand переключает провайдера для чата: /engine gemini | /engine gpt.
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		cur := r.engines.get(chatID)
		if cur == "" {
			cur = r.Engines.Default
		}
		r.send(chatID, "Cari model: "+cur+"\nİstifadə: /engine gemini | /engine gpt | /engine default")
		return
	}
	if name == "default" {
		r.engines.clear(chatID)
		r.send(chatID, "✅ Model: "+r.Engines.Default)
		return
	}
	eng, err := r.Engines.GetEngine(name, "")
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		r.send(chatID, "❌ "+name+" üçün açar təyin edilməyib.")
		return
	case err != nil:
		r.send(chatID, "❌ Naməlum model. Mövcuddur: gemini | gpt")
		return
	}
	r.engines.set(chatID, name)
	r.send(chatID, fmt.Sprintf("✅ Model: %s (%s)", name, eng.GetModel()))
}

func (r *Router) handleWords(ctx context.Context, chatID int64, text string) {
	words := strings.Fields(text)
	if len(words) > maxWordsPerMessage {
		r.send(chatID, fmt.Sprintf("Ən çox %d söz göndərin, ilk %d götürülür.", maxWordsPerMessage, maxWordsPerMessage))
		words = words[:maxWordsPerMessage]
	}

	eng, err := r.Engines.GetEngine(r.engines.get(chatID), "")
	if err != nil {
		r.logger().Error("engine unavailable", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, "❌ Model əlçatan deyil: "+err.Error())
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()
	entries, err := r.Analyzer.AnalyzeWords(ctx, eng, words)
	if err != nil {
		r.logger().Error("analysis failed",
			zap.Int64("chat_id", chatID),
			zap.Strings("words", words),
			zap.Error(err))
		r.send(chatID, "❌ Təhlil xətası: "+err.Error())
		return
	}
	if len(entries) == 0 {
		r.send(chatID, "Nəticə yoxdur.")
		return
	}
	for _, msg := range FormatEntries(entries) {
		r.send(chatID, msg)
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
