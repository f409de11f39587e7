package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mroshb/quizbot/internal/handlers"
)

// HandleQuizCallbacks routes vote button presses. Returns false when the
// callback data is not a quiz vote.
func HandleQuizCallbacks(bot handlers.BotInterface, h *handlers.HandlerManager, query *tgbotapi.CallbackQuery) bool {
	var questionIndex, optionIndex int
	if n, err := fmt.Sscanf(query.Data, "qvote_%d_%d", &questionIndex, &optionIndex); err != nil || n != 2 {
		return false
	}

	h.HandleVote(bot, query.ID, query.Message.Chat.ID, query.From.ID, questionIndex, optionIndex)
	return true
}
