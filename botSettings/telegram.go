package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

var telegramHTTP = &http.Client{Timeout: 10 * time.Second}

// telegramAPIBase is swapped in tests.
var telegramAPIBase = "https://api.telegram.org"

// sendTelegramMessage posts one HTML-formatted message through the Bot
// API. Failures are logged; the webhook never fails because a reply
// could not be delivered.
func sendTelegramMessage(botToken, chatID, text string, markup *inlineKeyboard) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		raw, err := json.Marshal(markup)
		if err != nil {
			log.Printf("Error encoding reply markup: %v", err)
			return
		}
		payload["reply_markup"] = string(raw)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding telegram message: %v", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, botToken)
	resp, err := telegramHTTP.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error sending telegram message to %s: %v", chatID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		log.Printf("Telegram API returned %s for chat %s: %s", resp.Status, chatID, string(snippet))
	}
}
