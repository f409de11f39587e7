// Package render turns session snapshots into Telegram message payloads.
// Display concerns (percentages, column widths, truncation) live here so the
// session core stays plain counts.
package render

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mroshb/quizbot/internal/session"
	"github.com/mroshb/quizbot/pkg/utils"
)

const (
	// Column sizing for the results table
	MaxOptionLength = 15
	MinOptionLength = 6

	// Telegram rejects button labels past 64 bytes; stay under with headroom.
	maxButtonLabel = 48
)

// VoteCallback builds the callback data for one option button. The question
// index rides along so clicks on a superseded question can be told apart from
// votes on the current one.
func VoteCallback(questionIndex, optionIndex int) string {
	return fmt.Sprintf("qvote_%d_%d", questionIndex, optionIndex)
}

// QuestionText renders the header line for the current question.
func QuestionText(snap *session.Snapshot) string {
	return fmt.Sprintf("❓ Question %d of %d — %s\n\n%s",
		snap.QuestionIndex+1, snap.QuestionCount, snap.QuizName, snap.QuestionText)
}

// OptionsKeyboard lays the option buttons out two per row, in option order.
func OptionsKeyboard(snap *session.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for i, opt := range snap.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			utils.TruncateLabel(opt, maxButtonLabel),
			VoteCallback(snap.QuestionIndex, i),
		))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DisabledKeyboard is the empty markup used to strip buttons from a question
// that is no longer accepting votes.
func DisabledKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

// VoteCounter renders the live companion line under a question.
func VoteCounter(snap *session.Snapshot) string {
	return fmt.Sprintf("🗳 Votes: %d", utils.SumInts(snap.Tally))
}

// ResultsTable renders the per-option breakdown of a finished question as a
// monospace block: option, count and percentage columns.
func ResultsTable(snap *session.Snapshot) string {
	total := utils.SumInts(snap.Tally)

	width := MinOptionLength
	for _, opt := range snap.Options {
		if n := len([]rune(opt)); n > width {
			width = n
		}
		if width >= MaxOptionLength {
			width = MaxOptionLength
			break
		}
	}

	var b strings.Builder
	b.WriteString("Results\n")
	b.WriteString(pad("Option", width))
	b.WriteString(" | Count | %\n")
	b.WriteString(strings.Repeat("-", width+16))
	b.WriteString("\n")

	for i, opt := range snap.Options {
		count := snap.Tally[i]
		percentage := 0.0
		if total > 0 {
			percentage = float64(count) / float64(total) * 100
		}
		b.WriteString(pad(utils.TruncateLabel(opt, MaxOptionLength), width))
		b.WriteString(fmt.Sprintf(" | %-5d | %.2f%%\n", count, percentage))
	}

	return "```\n" + b.String() + "```"
}

// CompletionText announces the end of a quiz.
func CompletionText(snap *session.Snapshot) string {
	return fmt.Sprintf("🏁 The quiz %q has ended!", snap.QuizName)
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
