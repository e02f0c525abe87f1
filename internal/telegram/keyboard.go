package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// TaskNavRow builds the prev / position / next row of the task browser.
func TaskNavRow(idx, total int) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if idx > 0 {
		row = append(row, InlineButton("⬅️", "task_prev"))
	}
	row = append(row, InlineButton(fmt.Sprintf("%d/%d", idx+1, total), "cur"))
	if idx < total-1 {
		row = append(row, InlineButton("➡️", "task_next"))
	}

	return row
}
