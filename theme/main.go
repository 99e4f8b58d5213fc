// The theme function serves the site color scheme as a key-value map.
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

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod {
	case http.MethodOptions:
		return response.Preflight("GET, PUT, OPTIONS"), nil
	case http.MethodGet:
		return getTheme(), nil
	case http.MethodPut:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		return updateTheme(request.Body), nil
	}
	return response.MethodNotAllowed(), nil
}

func getTheme() events.APIGatewayProxyResponse {
	rows, err := db.QueryContext(ctx, `SELECT theme_key, color_value FROM site_theme ORDER BY theme_key`)
	if err != nil {
		log.Printf("Error loading theme: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить тему")
	}
	defer rows.Close()

	theme := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			log.Printf("Error scanning theme row: %v", err)
			continue
		}
		theme[key] = value
	}
	return response.OK(theme)
}

func updateTheme(body string) events.APIGatewayProxyResponse {
	updates := map[string]string{}
	if err := json.Unmarshal([]byte(body), &updates); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}

	for key, value := range updates {
		if _, err := db.ExecContext(ctx,
			`UPDATE site_theme SET color_value = $1, updated_at = CURRENT_TIMESTAMP WHERE theme_key = $2`,
			value, key); err != nil {
			log.Printf("Error updating theme key %q: %v", key, err)
			return response.Error(http.StatusInternalServerError, "Не удалось обновить тему")
		}
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Theme updated"})
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
