// The bot-settings function manages the Telegram bot configuration and
// message templates, and receives the bot's webhook updates.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Zaharka0/tobacco-store-design/pkg/auth"
	"github.com/Zaharka0/tobacco-store-design/pkg/config"
	"github.com/Zaharka0/tobacco-store-design/pkg/database"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

var (
	db  *sql.DB
	ctx = context.Background()
)

type botSetting struct {
	SettingKey   string `json:"setting_key"`
	SettingValue string `json:"setting_value"`
}

type botMessage struct {
	MessageKey  string `json:"message_key"`
	MessageText string `json:"message_text"`
}

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod {
	case http.MethodOptions:
		return response.Preflight("GET, POST, PUT, OPTIONS"), nil
	case http.MethodPost:
		return handleWebhook(request.Body), nil
	case http.MethodGet:
		return getBotConfig(), nil
	case http.MethodPut:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		return updateBotConfig(request.Body), nil
	}
	return response.MethodNotAllowed(), nil
}

func getBotConfig() events.APIGatewayProxyResponse {
	settings := []botSetting{}
	rows, err := db.QueryContext(ctx, `SELECT setting_key, setting_value FROM bot_settings ORDER BY setting_key`)
	if err != nil {
		log.Printf("Error loading bot settings: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить настройки")
	}
	defer rows.Close()
	for rows.Next() {
		var s botSetting
		if err := rows.Scan(&s.SettingKey, &s.SettingValue); err != nil {
			log.Printf("Error scanning bot setting: %v", err)
			continue
		}
		settings = append(settings, s)
	}

	messages := []botMessage{}
	msgRows, err := db.QueryContext(ctx, `SELECT message_key, message_text FROM bot_messages ORDER BY message_key`)
	if err != nil {
		log.Printf("Error loading bot messages: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить сообщения")
	}
	defer msgRows.Close()
	for msgRows.Next() {
		var m botMessage
		if err := msgRows.Scan(&m.MessageKey, &m.MessageText); err != nil {
			log.Printf("Error scanning bot message: %v", err)
			continue
		}
		messages = append(messages, m)
	}

	return response.OK(map[string]interface{}{"settings": settings, "messages": messages})
}

func updateBotConfig(body string) events.APIGatewayProxyResponse {
	var req struct {
		Settings []botSetting `json:"settings"`
		Messages []botMessage `json:"messages"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}

	for _, s := range req.Settings {
		if _, err := db.ExecContext(ctx,
			`UPDATE bot_settings SET setting_value = $1, updated_at = CURRENT_TIMESTAMP WHERE setting_key = $2`,
			s.SettingValue, s.SettingKey); err != nil {
			log.Printf("Error updating bot setting %q: %v", s.SettingKey, err)
			return response.Error(http.StatusInternalServerError, "Не удалось обновить настройки")
		}
	}
	for _, m := range req.Messages {
		if _, err := db.ExecContext(ctx,
			`UPDATE bot_messages SET message_text = $1, updated_at = CURRENT_TIMESTAMP WHERE message_key = $2`,
			m.MessageText, m.MessageKey); err != nil {
			log.Printf("Error updating bot message %q: %v", m.MessageKey, err)
			return response.Error(http.StatusInternalServerError, "Не удалось обновить сообщения")
		}
	}
	return response.Success()
}

func main() {
	config.LoadEnv()

	dbClient, err := database.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize DB client: %v", err)
	}
	defer dbClient.Close()
	db = dbClient.DB()

	lambda.Start(handler)
}
