package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/router"
	"github.com/youarebest/tgbot/internal/upstream"
)

func mainKeyboard() *models.ReplyKeyboardMarkup {
	rows := make([][]models.KeyboardButton, 0, len(router.KeyboardRows))
	for _, labels := range router.KeyboardRows {
		row := make([]models.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, models.KeyboardButton{Text: label})
		}
		rows = append(rows, row)
	}
	return &models.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// intervalKeyboard offers the interval choices, two per row.
func intervalKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, minutes := range router.IntervalChoices {
		row = append(row, models.InlineKeyboardButton{
			Text:         upstream.ToPersianDigits(fmt.Sprintf("%d دقیقه", minutes)),
			CallbackData: router.IntervalCallbackPrefix + strconv.Itoa(minutes),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
