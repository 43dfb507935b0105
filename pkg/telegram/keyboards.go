package telegram

import (
	"github.com/go-telegram/bot/models"
)

// expenseConfirmKeyboard returns keyboard to confirm expense details
func expenseConfirmKeyboard() models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Confirm", CallbackData: "expense:confirm"},
				{Text: "❌ Cancel", CallbackData: "expense:cancel"},
			},
		},
	}
}
