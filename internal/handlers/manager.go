// Package handlers holds the chat-facing quiz logic: commands and vote
// callbacks arrive here already parsed, get applied to the session manager
// and catalog, and go back out as Telegram sends and edits through
// BotInterface.
package handlers

import (
	"sync"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/config"
	"github.com/mroshb/quizbot/internal/session"
)

// BotInterface is the slice of the Telegram client the handlers need.
// Keyboards travel as interface{} so this package's tests can run without a
// live bot.
type BotInterface interface {
	SendMessage(chatID int64, text string, keyboard interface{}) int
	EditMessage(chatID int64, messageID int, text string, keyboard interface{})
	EditMessageReplyMarkup(chatID int64, messageID int, keyboard interface{})
	AnswerCallbackQuery(queryID string, text string, showAlert bool)
	DownloadFile(fileID string) ([]byte, error)
}

// chatUI remembers the message ids of the question and its vote counter so
// later updates can edit them in place.
type chatUI struct {
	questionMsgID int
	counterMsgID  int
}

type HandlerManager struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Sessions *session.Manager

	mu sync.Mutex
	ui map[int64]*chatUI
}

func NewHandlerManager(cfg *config.Config, cat *catalog.Catalog, sessions *session.Manager) *HandlerManager {
	return &HandlerManager{
		Config:   cfg,
		Catalog:  cat,
		Sessions: sessions,
		ui:       make(map[int64]*chatUI),
	}
}

func (h *HandlerManager) setUI(chatID int64, questionMsgID, counterMsgID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ui[chatID] = &chatUI{questionMsgID: questionMsgID, counterMsgID: counterMsgID}
}

func (h *HandlerManager) getUI(chatID int64) (chatUI, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ui, ok := h.ui[chatID]; ok {
		return *ui, true
	}
	return chatUI{}, false
}

func (h *HandlerManager) clearUI(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.ui, chatID)
}
