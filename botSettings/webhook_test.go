package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db = mockDB
	return mock
}

type sentMessage struct {
	ChatID      string `json:"chat_id"`
	Text        string `json:"text"`
	ReplyMarkup string `json:"reply_markup"`
}

// captureTelegram points the Bot API helper at a local server and
// records every sendMessage call.
func captureTelegram(t *testing.T) *[]sentMessage {
	t.Helper()
	sent := &[]sentMessage{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m sentMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		*sent = append(*sent, m)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	old := telegramAPIBase
	telegramAPIBase = srv.URL
	t.Cleanup(func() { telegramAPIBase = old })
	return sent
}

func expectBotConfig(mock sqlmock.Sqlmock, settings, messages map[string]string) {
	settingRows := sqlmock.NewRows([]string{"setting_key", "setting_value"})
	for k, v := range settings {
		settingRows.AddRow(k, v)
	}
	mock.ExpectQuery(`SELECT setting_key, setting_value FROM bot_settings`).WillReturnRows(settingRows)

	messageRows := sqlmock.NewRows([]string{"message_key", "message_text"})
	for k, v := range messages {
		messageRows.AddRow(k, v)
	}
	mock.ExpectQuery(`SELECT message_key, message_text FROM bot_messages`).WillReturnRows(messageRows)
}

func webhookRequest(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: body}
}

func TestWebhookBotDisabled(t *testing.T) {
	mock := setupDB(t)
	sent := captureTelegram(t)
	expectBotConfig(mock, map[string]string{"bot_enabled": "false", "bot_token": "123:ABC"}, nil)

	resp, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"/start"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"bot disabled"}`, resp.Body)
	assert.Empty(t, *sent)
}

func TestWebhookRequiresToken(t *testing.T) {
	mock := setupDB(t)
	expectBotConfig(mock, map[string]string{"bot_enabled": "true"}, nil)

	resp, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"/start"}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookStartSendsWelcomeTemplate(t *testing.T) {
	mock := setupDB(t)
	sent := captureTelegram(t)
	expectBotConfig(mock,
		map[string]string{"bot_enabled": "true", "bot_token": "123:ABC"},
		map[string]string{"welcome": "Добро пожаловать в WhiteShishka!"})

	resp, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"/start"}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, *sent, 1)
	assert.Equal(t, "777", (*sent)[0].ChatID)
	assert.Equal(t, "Добро пожаловать в WhiteShishka!", (*sent)[0].Text)
}

func TestWebhookStartOrderRepliesWithCart(t *testing.T) {
	mock := setupDB(t)
	sent := captureTelegram(t)
	expectBotConfig(mock,
		map[string]string{"bot_enabled": "true", "bot_token": "123:ABC", "admin_username": "manager"},
		nil)

	mock.ExpectQuery(`SELECT product_name, product_price, quantity, .+ FROM cart_items`).
		WithArgs(int64(55)).
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "product_price", "quantity", "total"}).
			AddRow("Кальян Alpha", 1000.0, 1, 1000.0).
			AddRow("Уголь кокосовый", 150.0, 2, 300.0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET telegram_user_id = $1 WHERE id = $2`)).
		WithArgs("777", int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"/start order_55"}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, "777", msg.ChatID)
	assert.Contains(t, msg.Text, "Кальян Alpha x1 = 1000₽")
	assert.Contains(t, msg.Text, "Уголь кокосовый x2 = 300₽")
	assert.Contains(t, msg.Text, "Итого: 1300₽")
	assert.Contains(t, msg.ReplyMarkup, "https://t.me/manager")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookStartOrderEmptyCart(t *testing.T) {
	mock := setupDB(t)
	sent := captureTelegram(t)
	expectBotConfig(mock, map[string]string{"bot_enabled": "true", "bot_token": "123:ABC"}, nil)

	mock.ExpectQuery(`SELECT product_name, product_price, quantity, .+ FROM cart_items`).
		WithArgs(int64(55)).
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "product_price", "quantity", "total"}))

	_, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"/start order_55"}}`))
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	assert.Equal(t, "Корзина пуста", (*sent)[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookUnknownTextForwardsToAdmin(t *testing.T) {
	mock := setupDB(t)
	sent := captureTelegram(t)
	expectBotConfig(mock,
		map[string]string{"bot_enabled": "true", "bot_token": "123:ABC", "admin_chat_id": "999"},
		nil)

	_, err := handler(webhookRequest(`{"message":{"chat":{"id":777},"text":"есть кальяны?"}}`))
	require.NoError(t, err)

	require.Len(t, *sent, 2)
	assert.Equal(t, "777", (*sent)[0].ChatID)
	assert.Contains(t, (*sent)[0].Text, "/help")
	assert.Equal(t, "999", (*sent)[1].ChatID)
	assert.Contains(t, (*sent)[1].Text, "777")
	assert.Contains(t, (*sent)[1].Text, "есть кальяны?")
}

func TestParseOrderStart(t *testing.T) {
	cartID, ok := parseOrderStart("/start order_55")
	require.True(t, ok)
	assert.Equal(t, int64(55), cartID)

	for _, text := range []string{"/start", "/start order_x", "/help", "order_55"} {
		_, ok := parseOrderStart(text)
		assert.False(t, ok, text)
	}
}
