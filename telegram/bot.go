// Package telegram runs the bot: long polling, a per-chat worker pool and the
// thin wrappers the handlers use to talk back to the Telegram API.
package telegram

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/config"
	"github.com/mroshb/quizbot/internal/handlers"
	"github.com/mroshb/quizbot/internal/middleware"
	"github.com/mroshb/quizbot/internal/repositories"
	"github.com/mroshb/quizbot/internal/session"
	"github.com/mroshb/quizbot/pkg/logger"
)

const workerCount = 8

type Bot struct {
	api      *tgbotapi.BotAPI
	config   *config.Config
	handlers *handlers.HandlerManager
	limiter  *middleware.RateLimiter

	// One channel per worker; updates are sharded by chat id so everything
	// in a chat is applied in order.
	workerChans []chan tgbotapi.Update
}

func InitBot(cfg *config.Config, db *gorm.DB) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	api.Debug = cfg.AppEnv == "development"

	cat, err := catalog.New(repositories.NewQuizRepository(db))
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		api:      api,
		config:   cfg,
		handlers: handlers.NewHandlerManager(cfg, cat, session.NewManager()),
		limiter:  middleware.NewRateLimiter(cfg),
	}

	bot.workerChans = make([]chan tgbotapi.Update, workerCount)
	for i := range bot.workerChans {
		bot.workerChans[i] = make(chan tgbotapi.Update, 64)
		go bot.worker(bot.workerChans[i])
	}

	logger.Info("Bot authorized", "username", api.Self.UserName)
	return bot, nil
}

// Start blocks on the long-polling update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	for update := range updates {
		chatID := updateChatID(update)
		if chatID == 0 {
			continue
		}
		b.workerChans[workerIndex(chatID)] <- update
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.limiter.Stop()
	for _, ch := range b.workerChans {
		close(ch)
	}
}

func (b *Bot) worker(updates <-chan tgbotapi.Update) {
	for update := range updates {
		b.handleUpdate(update)
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling update", "panic", r, "update_id", update.UpdateID)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	if !b.limiter.Allow(userID, chatID) {
		b.AnswerCallbackQuery(query.ID, "Too many requests, slow down.", false)
		return
	}

	if HandleQuizCallbacks(b, b.handlers, query) {
		return
	}
	b.AnswerCallbackQuery(query.ID, "", false)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Document with a /upload_quiz caption; commands ride in captions there.
	if msg.Document != nil && strings.HasPrefix(msg.Caption, "/upload_quiz") {
		if !b.limiter.Allow(userID, chatID) {
			return
		}
		b.handlers.UploadQuiz(b, chatID, userID, msg.Document.FileID, msg.Document.FileName, int64(msg.Document.FileSize))
		return
	}

	if !msg.IsCommand() {
		return
	}
	if !b.limiter.Allow(userID, chatID) {
		logger.Debug("Dropping command from rate-limited user", "user_id", userID, "chat_id", chatID)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.SendMessage(chatID, helpText, nil)
	case "quizzes":
		b.handlers.ListQuizzes(b, chatID)
	case "start_quiz":
		b.handlers.StartQuiz(b, chatID, userID, strings.TrimSpace(msg.CommandArguments()))
	case "next_question":
		b.handlers.NextQuestion(b, chatID, userID)
	case "stop_quiz":
		b.handlers.StopQuiz(b, chatID, userID)
	case "upload_quiz":
		b.SendMessage(chatID, "Attach a .json or .xlsx quiz file with /upload_quiz as its caption.", nil)
	}
}

const helpText = `🎓 Quiz bot commands:

/quizzes - list available quizzes
/start_quiz <name> - start a quiz in this chat
/next_question - show results and move on (starter only)
/stop_quiz - end the current quiz
/upload_quiz - add quizzes from a .json or .xlsx file`

// SendMessage sends text with an optional inline keyboard and returns the new
// message id, or 0 when the send failed.
func (b *Bot) SendMessage(chatID int64, text string, keyboard interface{}) int {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := keyboard.(tgbotapi.InlineKeyboardMarkup); ok {
		msg.ReplyMarkup = kb
	}
	if strings.HasPrefix(text, "```") {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		logger.Error("Failed to send message", "chat_id", chatID, "error", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string, keyboard interface{}) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb, ok := keyboard.(tgbotapi.InlineKeyboardMarkup); ok {
		edit.ReplyMarkup = &kb
	}

	if _, err := b.api.Request(edit); err != nil {
		logger.Error("Failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (b *Bot) EditMessageReplyMarkup(chatID int64, messageID int, keyboard interface{}) {
	kb, ok := keyboard.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, kb)

	if _, err := b.api.Request(edit); err != nil {
		logger.Error("Failed to edit reply markup", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (b *Bot) AnswerCallbackQuery(queryID string, text string, showAlert bool) {
	callback := tgbotapi.NewCallback(queryID, text)
	callback.ShowAlert = showAlert

	if _, err := b.api.Request(callback); err != nil {
		logger.Error("Failed to answer callback query", "error", err)
	}
}

// DownloadFile fetches an uploaded document's bytes, capped at the configured
// upload limit.
func (b *Bot) DownloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file url: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.config.UploadMaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	if int64(len(data)) > b.config.UploadMaxSize {
		return nil, fmt.Errorf("file exceeds upload limit of %d bytes", b.config.UploadMaxSize)
	}
	return data, nil
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}

// workerIndex shards by chat so per-chat ordering holds across the pool.
func workerIndex(chatID int64) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % workerCount)
}
