package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

type contentEntry struct {
	Value       string `json:"value"`
	Section     string `json:"section"`
	Description string `json:"description"`
}

// getSiteContent returns the site-wide key-value content store, keyed
// by content_key, optionally narrowed to one section.
func getSiteContent(section string) events.APIGatewayProxyResponse {
	query := `SELECT content_key, content_value, section, description FROM site_content ORDER BY section, content_key`
	args := []interface{}{}
	if section != "" {
		query = `SELECT content_key, content_value, section, description FROM site_content WHERE section = $1 ORDER BY content_key`
		args = append(args, section)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("Error loading site content: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить контент")
	}
	defer rows.Close()

	content := map[string]contentEntry{}
	for rows.Next() {
		var key string
		var entry contentEntry
		if err := rows.Scan(&key, &entry.Value, &entry.Section, &entry.Description); err != nil {
			log.Printf("Error scanning site content row: %v", err)
			continue
		}
		content[key] = entry
	}
	return response.OK(content)
}

// updateSiteContent bulk-updates values by content_key.
func updateSiteContent(body string) events.APIGatewayProxyResponse {
	updates := map[string]string{}
	if err := json.Unmarshal([]byte(body), &updates); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}

	for key, value := range updates {
		if _, err := db.ExecContext(ctx,
			`UPDATE site_content SET content_value = $1, updated_at = CURRENT_TIMESTAMP WHERE content_key = $2`,
			value, key); err != nil {
			log.Printf("Error updating site content %q: %v", key, err)
			return response.Error(http.StatusInternalServerError, "Не удалось обновить контент")
		}
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Content updated", "updated_keys": len(updates)})
}
