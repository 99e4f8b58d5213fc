// The site-texts function serves the flat key-value store of every
// user-visible text on the site, editable from the back office.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Zaharka0/tobacco-store-design/models"
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
		return getTexts(request.QueryStringParameters["section"]), nil
	case http.MethodPut:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		return updateTexts(request.Body), nil
	}
	return response.MethodNotAllowed(), nil
}

func getTexts(section string) events.APIGatewayProxyResponse {
	query := `SELECT text_key, text_value, section, description FROM site_texts ORDER BY section, text_key`
	args := []interface{}{}
	if section != "" {
		query = `SELECT text_key, text_value, section, description FROM site_texts WHERE section = $1 ORDER BY text_key`
		args = append(args, section)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("Error loading site texts: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить тексты")
	}
	defer rows.Close()

	texts := map[string]models.SiteText{}
	for rows.Next() {
		var key string
		var t models.SiteText
		if err := rows.Scan(&key, &t.Value, &t.Section, &t.Description); err != nil {
			log.Printf("Error scanning site text: %v", err)
			continue
		}
		texts[key] = t
	}
	return response.OK(texts)
}

func updateTexts(body string) events.APIGatewayProxyResponse {
	updates := map[string]string{}
	if err := json.Unmarshal([]byte(body), &updates); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}

	updated := 0
	for key, value := range updates {
		res, err := db.ExecContext(ctx,
			`UPDATE site_texts SET text_value = $1, updated_at = CURRENT_TIMESTAMP WHERE text_key = $2`,
			value, key)
		if err != nil {
			log.Printf("Error updating site text %q: %v", key, err)
			return response.Error(http.StatusInternalServerError, "Не удалось обновить тексты")
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += int(n)
		}
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Texts updated", "updated_count": updated})
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
