// The content function serves the per-page content blocks the
// storefront binds display text and structured sections from.
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
		return response.Preflight("GET, PUT, DELETE, OPTIONS"), nil
	case http.MethodGet:
		return listBlocks(request.QueryStringParameters["page"]), nil
	case http.MethodPut, http.MethodDelete:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		if request.HTTPMethod == http.MethodPut {
			return updateBlock(request.QueryStringParameters["id"], request.Body), nil
		}
		return hideBlock(request.QueryStringParameters["id"]), nil
	}
	return response.MethodNotAllowed(), nil
}

// listBlocks returns content blocks, folding content_json/content_text
// into the single content field clients consume.
func listBlocks(page string) events.APIGatewayProxyResponse {
	query := `SELECT id, page_name, block_key, block_type, content_text, content_json, is_visible, display_order
		FROM page_content ORDER BY page_name, display_order`
	args := []interface{}{}
	if page != "" {
		query = `SELECT id, page_name, block_key, block_type, content_text, content_json, is_visible, display_order
			FROM page_content WHERE page_name = $1 ORDER BY display_order`
		args = append(args, page)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("Error loading page content: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить контент")
	}
	defer rows.Close()

	blocks := []models.ContentBlock{}
	for rows.Next() {
		var b models.ContentBlock
		var text sql.NullString
		var raw []byte
		if err := rows.Scan(&b.ID, &b.PageName, &b.BlockKey, &b.BlockType, &text, &raw, &b.IsVisible, &b.DisplayOrder); err != nil {
			log.Printf("Error scanning content block: %v", err)
			continue
		}
		if len(raw) > 0 {
			b.Content = raw
		} else {
			encoded, _ := json.Marshal(text.String)
			b.Content = encoded
		}
		blocks = append(blocks, b)
	}
	return response.OK(blocks)
}

// updateBlock stores plain strings in content_text and anything
// structured in content_json, clearing the other column.
func updateBlock(id, body string) events.APIGatewayProxyResponse {
	if id == "" {
		return response.Error(http.StatusBadRequest, "Content ID required")
	}
	var req struct {
		Content   json.RawMessage `json:"content"`
		IsVisible *bool           `json:"is_visible"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	isVisible := true
	if req.IsVisible != nil {
		isVisible = *req.IsVisible
	}

	var text string
	var err error
	if json.Unmarshal(req.Content, &text) == nil {
		_, err = db.ExecContext(ctx,
			`UPDATE page_content SET content_text = $1, content_json = NULL, is_visible = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
			text, isVisible, id)
	} else {
		_, err = db.ExecContext(ctx,
			`UPDATE page_content SET content_json = $1, content_text = NULL, is_visible = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
			[]byte(req.Content), isVisible, id)
	}
	if err != nil {
		log.Printf("Error updating content block %s: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось обновить контент")
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Content updated"})
}

// hideBlock flips visibility off instead of deleting the row.
func hideBlock(id string) events.APIGatewayProxyResponse {
	if id == "" {
		return response.Error(http.StatusBadRequest, "Content ID required")
	}
	if _, err := db.ExecContext(ctx, `UPDATE page_content SET is_visible = false WHERE id = $1`, id); err != nil {
		log.Printf("Error hiding content block %s: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось скрыть контент")
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Content hidden"})
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
