package handlers

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mroshb/quizbot/internal/catalog"
	"github.com/mroshb/quizbot/internal/metrics"
	"github.com/mroshb/quizbot/internal/render"
	"github.com/mroshb/quizbot/internal/security"
	"github.com/mroshb/quizbot/internal/session"
	apperrors "github.com/mroshb/quizbot/pkg/errors"
	"github.com/mroshb/quizbot/pkg/logger"
)

// StartQuiz begins the named quiz in the chat and posts its first question.
func (h *HandlerManager) StartQuiz(bot BotInterface, chatID, userID int64, quizName string) {
	quizName = security.SanitizeText(quizName)
	if quizName == "" {
		bot.SendMessage(chatID, "Usage: /start_quiz <name>\nSee /quizzes for what's available.", nil)
		return
	}

	quiz, err := h.Catalog.Get(quizName)
	if err != nil {
		bot.SendMessage(chatID, fmt.Sprintf("I don't know a quiz called %q. See /quizzes.", quizName), nil)
		return
	}

	snap, err := h.Sessions.Start(chatID, quiz, userID)
	if err != nil {
		bot.SendMessage(chatID, userMessage(err), nil)
		return
	}

	h.postQuestion(bot, chatID, snap)
	metrics.IncSessionStarted()
	logger.Info("Quiz started", "chat_id", chatID, "user_id", userID, "quiz", quizName)
}

// HandleVote applies one button press to the current question. questionIndex
// comes from the callback data; a mismatch with the running question means
// the button belongs to an already-closed question.
func (h *HandlerManager) HandleVote(bot BotInterface, queryID string, chatID, userID int64, questionIndex, optionIndex int) {
	current, err := h.Sessions.Current(chatID)
	if err != nil {
		metrics.IncVote(metrics.VoteNoSession)
		bot.AnswerCallbackQuery(queryID, "This quiz is over.", false)
		return
	}
	if questionIndex != current.QuestionIndex {
		metrics.IncVote(metrics.VoteStale)
		bot.AnswerCallbackQuery(queryID, "Voting on that question has closed.", false)
		return
	}

	snap, err := h.Sessions.Vote(chatID, userID, optionIndex)
	if err != nil {
		switch apperrors.Code(err) {
		case apperrors.ErrCodeAlreadyVoted:
			metrics.IncVote(metrics.VoteDuplicate)
		case apperrors.ErrCodeInvalidOption:
			metrics.IncVote(metrics.VoteInvalid)
		default:
			metrics.IncVote(metrics.VoteNoSession)
		}
		bot.AnswerCallbackQuery(queryID, userMessage(err), false)
		return
	}

	metrics.IncVote(metrics.VoteAccepted)
	bot.AnswerCallbackQuery(queryID, fmt.Sprintf("Vote recorded: %s", snap.Options[optionIndex]), false)

	if ui, ok := h.getUI(chatID); ok && ui.counterMsgID != 0 {
		bot.EditMessage(chatID, ui.counterMsgID, render.VoteCounter(snap), nil)
	}
}

// NextQuestion closes the current question, posts its results and shows the
// next one. On the last question it ends the quiz instead.
func (h *HandlerManager) NextQuestion(bot BotInterface, chatID, userID int64) {
	// Advance consumes the running question, so grab it first for the results post.
	prev, err := h.Sessions.Current(chatID)
	if err != nil {
		bot.SendMessage(chatID, userMessage(err), nil)
		return
	}

	snap, err := h.Sessions.Advance(chatID, userID)
	if err != nil {
		bot.SendMessage(chatID, userMessage(err), nil)
		return
	}

	h.closeQuestion(bot, chatID, prev)

	if snap.IsFinal {
		bot.SendMessage(chatID, render.CompletionText(snap), nil)
		h.clearUI(chatID)
		metrics.IncSessionCompleted()
		logger.Info("Quiz completed", "chat_id", chatID, "quiz", snap.QuizName)
		return
	}

	h.postQuestion(bot, chatID, snap)
}

// StopQuiz ends the chat's quiz early. Anyone in the chat may stop it.
func (h *HandlerManager) StopQuiz(bot BotInterface, chatID, userID int64) {
	if ui, ok := h.getUI(chatID); ok && ui.questionMsgID != 0 {
		bot.EditMessageReplyMarkup(chatID, ui.questionMsgID, render.DisabledKeyboard())
	}
	h.clearUI(chatID)

	if h.Sessions.Stop(chatID) {
		bot.SendMessage(chatID, "Quiz stopped.", nil)
		metrics.IncSessionStopped()
		logger.Info("Quiz stopped", "chat_id", chatID, "user_id", userID)
	} else {
		bot.SendMessage(chatID, "No quiz is running in this chat.", nil)
	}
}

// ListQuizzes posts the catalog's quiz names.
func (h *HandlerManager) ListQuizzes(bot BotInterface, chatID int64) {
	names := h.Catalog.Names()
	if len(names) == 0 {
		bot.SendMessage(chatID, "The quiz catalog is empty. Upload one with /upload_quiz.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📚 Available quizzes:\n")
	for _, name := range names {
		b.WriteString("• ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("\nStart one with /start_quiz <name>")
	bot.SendMessage(chatID, b.String(), nil)
}

// UploadQuiz ingests a quiz definition file attached to /upload_quiz.
// JSON and xlsx workbooks are accepted.
func (h *HandlerManager) UploadQuiz(bot BotInterface, chatID, userID int64, fileID, fileName string, fileSize int64) {
	if !h.Config.IsAdmin(userID) {
		metrics.IncUpload(metrics.UploadRejected)
		bot.SendMessage(chatID, "You are not allowed to change the quiz catalog.", nil)
		return
	}
	if !security.ValidateFileType(fileName, []string{".json", ".xlsx"}) {
		metrics.IncUpload(metrics.UploadRejected)
		bot.SendMessage(chatID, "Unsupported file type. Attach a .json or .xlsx file.", nil)
		return
	}
	if !security.ValidateFileSize(fileSize, h.Config.UploadMaxSize) {
		metrics.IncUpload(metrics.UploadRejected)
		bot.SendMessage(chatID, "That file is too large.", nil)
		return
	}

	data, err := bot.DownloadFile(fileID)
	if err != nil {
		metrics.IncUpload(metrics.UploadRejected)
		logger.Error("Quiz upload download failed", "chat_id", chatID, "error", err)
		bot.SendMessage(chatID, "Couldn't download that file, please try again.", nil)
		return
	}

	var quizzes []*catalog.Quiz
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		quizzes, err = catalog.ParseWorkbook(bytes.NewReader(data))
	} else {
		quizzes, err = catalog.ParseJSON(data)
	}
	if err != nil {
		metrics.IncUpload(metrics.UploadRejected)
		bot.SendMessage(chatID, fmt.Sprintf("That file didn't parse: %s", userMessage(err)), nil)
		return
	}

	if err := h.Catalog.Upsert(quizzes); err != nil {
		metrics.IncUpload(metrics.UploadRejected)
		logger.Error("Quiz upload save failed", "chat_id", chatID, "error", err)
		bot.SendMessage(chatID, "Saving the quizzes failed, please try again.", nil)
		return
	}

	metrics.IncUpload(metrics.UploadOK)
	names := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		names = append(names, q.Name)
	}
	bot.SendMessage(chatID, fmt.Sprintf("✅ Imported %d quiz(es): %s", len(quizzes), strings.Join(names, ", ")), nil)
	logger.Info("Quizzes uploaded", "chat_id", chatID, "user_id", userID, "quizzes", len(quizzes))
}

func (h *HandlerManager) postQuestion(bot BotInterface, chatID int64, snap *session.Snapshot) {
	questionID := bot.SendMessage(chatID, render.QuestionText(snap), render.OptionsKeyboard(snap))
	counterID := bot.SendMessage(chatID, render.VoteCounter(snap), nil)
	h.setUI(chatID, questionID, counterID)
}

// closeQuestion strips the buttons from the finished question and posts its
// tally breakdown.
func (h *HandlerManager) closeQuestion(bot BotInterface, chatID int64, prev *session.Snapshot) {
	if ui, ok := h.getUI(chatID); ok && ui.questionMsgID != 0 {
		bot.EditMessageReplyMarkup(chatID, ui.questionMsgID, render.DisabledKeyboard())
	}
	bot.SendMessage(chatID, render.ResultsTable(prev), nil)
}

// userMessage turns an internal error into the line shown to the chat.
func userMessage(err error) string {
	switch apperrors.Code(err) {
	case apperrors.ErrCodeAlreadyActive:
		return "A quiz is already running here. Finish it or /stop_quiz first."
	case apperrors.ErrCodeNoActiveSession:
		return "No quiz is running in this chat. Start one with /start_quiz <name>."
	case apperrors.ErrCodeAlreadyVoted:
		return "You already voted on this question."
	case apperrors.ErrCodeInvalidOption:
		return "That option doesn't exist for the current question."
	case apperrors.ErrCodeNotAuthorized:
		return "Only the person who started the quiz can advance it."
	case apperrors.ErrCodeValidation:
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) {
			return appErr.Message
		}
		return "That input doesn't look right."
	default:
		return "Something went wrong, please try again."
	}
}
