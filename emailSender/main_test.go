package main

import (
	"fmt"
	"net/http"
	"net/smtp"
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

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func captureSMTP(t *testing.T, fail error) *[]capturedMail {
	t.Helper()
	sent := &[]capturedMail{}
	old := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, capturedMail{addr: addr, from: from, to: to, msg: msg})
		return fail
	}
	t.Cleanup(func() { sendMail = old })
	return sent
}

func setSMTPEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SMTP_HOST", "smtp.test")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_USER", "shop@test.ru")
	t.Setenv("SMTP_PASSWORD", "secret")
}

func TestSendTestEmailReportsMissingConfig(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USER", "")
	t.Setenv("SMTP_PASSWORD", "")

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{"email":"user@mail.ru"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	for _, name := range []string{"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD"} {
		assert.Contains(t, resp.Body, name)
	}
}

func TestSendTestEmail(t *testing.T) {
	setSMTPEnv(t)
	sent := captureSMTP(t, nil)

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "test"},
		Body:                  `{"email":"user@mail.ru"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "user@mail.ru")

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.test:587", mail.addr)
	assert.Equal(t, "shop@test.ru", mail.from)
	assert.Equal(t, []string{"user@mail.ru"}, mail.to)
	assert.Contains(t, string(mail.msg), "Content-Type: text/html")
}

func TestSendTestEmailRequiresAddress(t *testing.T) {
	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Body:       `{}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	setupDB(t)
	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "subscribe"},
		Body:                  `{"email":"not-an-email"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribeUpsertsAndSendsWelcome(t *testing.T) {
	mock := setupDB(t)
	setSMTPEnv(t)
	sent := captureSMTP(t, nil)

	mock.ExpectQuery(`INSERT INTO newsletter_subscribers .+ RETURNING id`).
		WithArgs("user@mail.ru").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "subscribe"},
		Body:                  `{"email":"user@mail.ru"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "Приветственное письмо отправлено")

	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"user@mail.ru"}, (*sent)[0].to)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failed welcome email does not fail the subscription itself.
func TestSubscribeSurvivesMailFailure(t *testing.T) {
	mock := setupDB(t)
	setSMTPEnv(t)
	captureSMTP(t, fmt.Errorf("connection refused"))

	mock.ExpectQuery(`INSERT INTO newsletter_subscribers .+ RETURNING id`).
		WithArgs("user@mail.ru").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "subscribe"},
		Body:                  `{"email":"user@mail.ru"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "письмо не отправлено")
}

func TestUnknownActionNotFound(t *testing.T) {
	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "broadcast"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
