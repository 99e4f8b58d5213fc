package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

type webhookUpdate struct {
	Message *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// handleWebhook processes one Telegram update: /start order_<cartID>
// replies with the cart summary, plain /start, /help and /catalog use
// the configured message templates, and anything else is forwarded to
// the admin chat.
func handleWebhook(body string) events.APIGatewayProxyResponse {
	settings, messages, err := loadBotConfig()
	if err != nil {
		log.Printf("Error loading bot config for webhook: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить настройки бота")
	}

	if settings["bot_enabled"] != "true" {
		return response.OK(map[string]string{"status": "bot disabled"})
	}
	botToken := settings["bot_token"]
	if botToken == "" {
		return response.Error(http.StatusBadRequest, "Bot token not configured")
	}

	var update webhookUpdate
	if err := json.Unmarshal([]byte(body), &update); err != nil || update.Message == nil {
		return response.OK(map[string]bool{"ok": true})
	}

	chatID := update.Message.Chat.ID
	chat := strconv.FormatInt(chatID, 10)
	text := update.Message.Text

	switch {
	case strings.HasPrefix(text, "/start"):
		if cartID, ok := parseOrderStart(text); ok {
			replyWithOrder(botToken, chatID, cartID, settings)
		} else {
			sendTelegramMessage(botToken, chat, messageOr(messages, "welcome", "Привет!"), nil)
		}

	case text == "/help":
		sendTelegramMessage(botToken, chat, messageOr(messages, "help", "Доступные команды:\n/start\n/catalog\n/help"), nil)

	case text == "/catalog":
		replyWithCatalog(botToken, chatID, messages)

	default:
		sendTelegramMessage(botToken, chat, "Используйте /help для списка команд", nil)
		if adminChat := settings["admin_chat_id"]; adminChat != "" {
			sendTelegramMessage(botToken, adminChat,
				fmt.Sprintf("💬 Новое сообщение от пользователя %d:\n%s", chatID, text), nil)
		}
	}

	return response.OK(map[string]bool{"ok": true})
}

// parseOrderStart extracts the cart id from a "/start order_<id>" deep
// link payload.
func parseOrderStart(text string) (int64, bool) {
	parts := strings.SplitN(text, "_", 2)
	if len(parts) != 2 || parts[0] != "/start order" {
		return 0, false
	}
	cartID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return cartID, true
}

func replyWithOrder(botToken string, chatID, cartID int64, settings map[string]string) {
	rows, err := db.QueryContext(ctx, `
		SELECT product_name, product_price, quantity, (product_price * quantity) as total
		FROM cart_items
		WHERE cart_id = $1 AND quantity > 0`, cartID)
	if err != nil {
		log.Printf("Error loading cart %d for webhook: %v", cartID, err)
		return
	}
	defer rows.Close()

	var sb strings.Builder
	var total float64
	count := 0
	sb.WriteString("🛒 <b>Ваш заказ:</b>\n\n")
	for rows.Next() {
		var name string
		var price, lineTotal float64
		var qty int
		if err := rows.Scan(&name, &price, &qty, &lineTotal); err != nil {
			log.Printf("Error scanning cart item for webhook: %v", err)
			continue
		}
		fmt.Fprintf(&sb, "• %s x%d = %s₽\n", name, qty, strconv.FormatFloat(lineTotal, 'f', -1, 64))
		total += lineTotal
		count++
	}

	if count == 0 {
		sendTelegramMessage(botToken, strconv.FormatInt(chatID, 10), "Корзина пуста", nil)
		return
	}

	fmt.Fprintf(&sb, "\n💰 <b>Итого: %s₽</b>\n\n", strconv.FormatFloat(total, 'f', -1, 64))
	sb.WriteString("Для оформления заказа свяжитесь с менеджером")

	adminUsername := settings["admin_username"]
	if adminUsername == "" {
		adminUsername = "whiteshishka"
	}
	keyboard := &inlineKeyboard{InlineKeyboard: [][]inlineButton{{
		{Text: "💬 Связаться с менеджером", URL: "https://t.me/" + adminUsername},
	}}}
	sendTelegramMessage(botToken, strconv.FormatInt(chatID, 10), sb.String(), keyboard)

	if _, err := db.ExecContext(ctx,
		`UPDATE carts SET telegram_user_id = $1 WHERE id = $2`,
		strconv.FormatInt(chatID, 10), cartID); err != nil {
		log.Printf("Error binding cart %d to telegram user %d: %v", cartID, chatID, err)
	}
}

func replyWithCatalog(botToken string, chatID int64, messages map[string]string) {
	rows, err := db.QueryContext(ctx, `
		SELECT category, COUNT(*) as count
		FROM products
		WHERE in_stock = true
		GROUP BY category`)
	if err != nil {
		log.Printf("Error loading catalog summary for webhook: %v", err)
		return
	}
	defer rows.Close()

	var sb strings.Builder
	sb.WriteString(messageOr(messages, "catalog_intro", "📦 Наш каталог:"))
	sb.WriteString("\n\n")
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			log.Printf("Error scanning catalog summary: %v", err)
			continue
		}
		fmt.Fprintf(&sb, "• %s: %d товаров\n", category, count)
	}

	keyboard := &inlineKeyboard{InlineKeyboard: [][]inlineButton{{
		{Text: "🌐 Открыть каталог", URL: "https://whiteshishka.com"},
	}}}
	sendTelegramMessage(botToken, strconv.FormatInt(chatID, 10), sb.String(), keyboard)
}

func loadBotConfig() (settings, messages map[string]string, err error) {
	settings = map[string]string{}
	rows, err := db.QueryContext(ctx, `SELECT setting_key, setting_value FROM bot_settings`)
	if err != nil {
		return nil, nil, fmt.Errorf("load bot settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		settings[k] = v
	}

	messages = map[string]string{}
	msgRows, err := db.QueryContext(ctx, `SELECT message_key, message_text FROM bot_messages`)
	if err != nil {
		return nil, nil, fmt.Errorf("load bot messages: %w", err)
	}
	defer msgRows.Close()
	for msgRows.Next() {
		var k, v string
		if err := msgRows.Scan(&k, &v); err != nil {
			continue
		}
		messages[k] = v
	}
	return settings, messages, nil
}

func messageOr(messages map[string]string, key, fallback string) string {
	if v := messages[key]; v != "" {
		return v
	}
	return fallback
}
