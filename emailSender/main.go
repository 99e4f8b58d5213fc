// The email-sender function verifies the SMTP configuration with a test
// send and handles newsletter signups that get a welcome email.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"net/smtp"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Zaharka0/tobacco-store-design/pkg/config"
	"github.com/Zaharka0/tobacco-store-design/pkg/database"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

var (
	db  *sql.DB
	ctx = context.Background()

	// sendMail is replaced in tests.
	sendMail = smtp.SendMail
)

type smtpConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodOptions {
		return response.Preflight("GET, POST, OPTIONS"), nil
	}

	action := request.QueryStringParameters["action"]
	if action == "" {
		action = "test"
	}

	if request.HTTPMethod == http.MethodPost {
		switch action {
		case "test":
			return sendTestEmail(request.Body), nil
		case "subscribe":
			return subscribe(request.Body), nil
		}
	}
	return response.Error(http.StatusNotFound, "Action not found"), nil
}

func sendTestEmail(body string) events.APIGatewayProxyResponse {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.Email == "" {
		return response.Error(http.StatusBadRequest, "Email не указан")
	}

	cfg, missing := loadSMTPConfig()
	if len(missing) > 0 {
		return response.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":          "Не заполнены параметры SMTP: " + strings.Join(missing, ", "),
			"missing_params": missing,
		})
	}

	html := "<h2>✅ Тест успешен!</h2><p>SMTP настроен правильно, письма работают.</p>"
	if err := sendHTML(cfg, req.Email, "Тестовое письмо WhiteShishka", html); err != nil {
		log.Printf("Error sending test email to %s: %v", req.Email, err)
		return response.Error(http.StatusInternalServerError, fmt.Sprintf("Ошибка отправки: %v", err))
	}

	return response.OK(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Тестовое письмо отправлено на %s", req.Email),
	})
}

func subscribe(body string) events.APIGatewayProxyResponse {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return response.Error(http.StatusBadRequest, "Некорректный email адрес")
	}

	var id int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscribers (email, subscribed_at, active)
		VALUES ($1, NOW(), true)
		ON CONFLICT (email)
		DO UPDATE SET active = true, subscribed_at = NOW()
		RETURNING id`, email).Scan(&id); err != nil {
		log.Printf("Error subscribing %s: %v", email, err)
		return response.Error(http.StatusInternalServerError, "Не удалось оформить подписку")
	}

	// The subscription itself has succeeded at this point. A welcome
	// email failure is reported in the message, not as an error.
	cfg, missing := loadSMTPConfig()
	if len(missing) > 0 {
		return response.OK(map[string]interface{}{
			"success": true,
			"message": "Подписка оформлена, но письмо не отправлено: SMTP не настроен",
		})
	}
	if err := sendHTML(cfg, email, "Добро пожаловать в WhiteShishka!", welcomeHTML); err != nil {
		log.Printf("Error sending welcome email to %s: %v", email, err)
		return response.OK(map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Подписка оформлена, но письмо не отправлено: %v", err),
		})
	}
	return response.OK(map[string]interface{}{
		"success": true,
		"message": "Вы успешно подписались! Приветственное письмо отправлено.",
	})
}

func loadSMTPConfig() (smtpConfig, []string) {
	cfg := smtpConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}

	missing := []string{}
	if cfg.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if cfg.Port == "" {
		missing = append(missing, "SMTP_PORT")
	}
	if cfg.User == "" {
		missing = append(missing, "SMTP_USER")
	}
	if cfg.Password == "" {
		missing = append(missing, "SMTP_PASSWORD")
	}
	return cfg, missing
}

// sendHTML delivers one HTML email over SMTP with STARTTLS.
func sendHTML(cfg smtpConfig, to, subject, html string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.User)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	return sendMail(addr, auth, cfg.User, []string{to}, []byte(msg.String()))
}

const welcomeHTML = `
<html>
	<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
		<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #8B4513;">Спасибо за подписку!</h2>
			<p>Здравствуйте!</p>
			<p>Вы успешно подписались на новости и акции WhiteShishka.</p>
			<p>Теперь вы будете первыми узнавать о:</p>
			<ul>
				<li>Новых поступлениях товаров</li>
				<li>Специальных предложениях и скидках</li>
				<li>Эксклюзивных акциях для подписчиков</li>
			</ul>
			<p style="margin-top: 30px;">С уважением,<br>Команда WhiteShishka</p>
		</div>
	</body>
</html>
`

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
