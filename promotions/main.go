// The promotions function manages promo banners and the newsletter
// subscriber list.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

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

const promoColumns = `id, title, description, discount, image_url, valid_until, is_active, created_at`

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodOptions {
		return response.Preflight("GET, POST, PUT, DELETE, OPTIONS"), nil
	}

	params := request.QueryStringParameters
	if params["action"] == "newsletter-subscribe" && request.HTTPMethod == http.MethodPost {
		return subscribeNewsletter(request.Body), nil
	}

	switch request.HTTPMethod {
	case http.MethodGet:
		if rawID := params["id"]; rawID != "" {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				return response.Error(http.StatusBadRequest, "Некорректный ID акции"), nil
			}
			return getPromotion(id), nil
		}
		return listPromotions(), nil

	case http.MethodPost, http.MethodPut, http.MethodDelete:
		header := request.Headers["X-Authorization"]
		if header == "" {
			header = request.Headers["x-authorization"]
		}
		if err := auth.VerifyAdmin(header); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		switch request.HTTPMethod {
		case http.MethodPost:
			return createPromotion(request.Body), nil
		case http.MethodPut:
			return updatePromotion(params["id"], request.Body), nil
		default:
			return deletePromotion(params["id"]), nil
		}
	}

	return response.MethodNotAllowed(), nil
}

func subscribeNewsletter(body string) events.APIGatewayProxyResponse {
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
	err := db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscribers (email, subscribed_at, active)
		VALUES ($1, NOW(), true)
		ON CONFLICT (email)
		DO UPDATE SET active = true, subscribed_at = NOW()
		RETURNING id`, email).Scan(&id)
	if err != nil {
		log.Printf("Error subscribing %s: %v", email, err)
		return response.Error(http.StatusInternalServerError, "Не удалось оформить подписку")
	}
	return response.OK(map[string]interface{}{"success": true, "message": "Вы успешно подписались на рассылку!"})
}

func scanPromotion(row interface{ Scan(...interface{}) error }) (models.Promotion, error) {
	var p models.Promotion
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Discount, &p.ImageURL, &p.ValidUntil, &p.IsActive, &p.CreatedAt)
	return p, err
}

func listPromotions() events.APIGatewayProxyResponse {
	rows, err := db.QueryContext(ctx, `SELECT `+promoColumns+` FROM promotions ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("Error listing promotions: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить акции")
	}
	defer rows.Close()

	promos := []models.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			log.Printf("Error scanning promotion: %v", err)
			continue
		}
		promos = append(promos, p)
	}
	return response.OK(promos)
}

func getPromotion(id int64) events.APIGatewayProxyResponse {
	p, err := scanPromotion(db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promotions WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Акция не найдена")
	}
	if err != nil {
		log.Printf("Error fetching promotion %d: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить акцию")
	}
	return response.OK(p)
}

type promoPayload struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Discount    string `json:"discount"`
	ImageURL    string `json:"image_url"`
	ValidUntil  string `json:"valid_until"`
	IsActive    *bool  `json:"is_active"`
}

func (p *promoPayload) defaults() (imageURL string, isActive bool) {
	imageURL = p.ImageURL
	if imageURL == "" {
		imageURL = "/placeholder.svg"
	}
	isActive = true
	if p.IsActive != nil {
		isActive = *p.IsActive
	}
	return imageURL, isActive
}

func createPromotion(body string) events.APIGatewayProxyResponse {
	var data promoPayload
	if err := json.Unmarshal([]byte(body), &data); err != nil || data.Title == "" {
		return response.Error(http.StatusBadRequest, "Название акции обязательно")
	}
	imageURL, isActive := data.defaults()

	p, err := scanPromotion(db.QueryRowContext(ctx, `
		INSERT INTO promotions (title, description, discount, image_url, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+promoColumns,
		data.Title, data.Description, data.Discount, imageURL, data.ValidUntil, isActive))
	if err != nil {
		log.Printf("Error creating promotion %q: %v", data.Title, err)
		return response.Error(http.StatusInternalServerError, "Не удалось создать акцию")
	}
	return response.JSON(http.StatusCreated, p)
}

func updatePromotion(rawID, body string) events.APIGatewayProxyResponse {
	var data promoPayload
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	if rawID != "" {
		if id, err := strconv.ParseInt(rawID, 10, 64); err == nil {
			data.ID = id
		}
	}
	if data.ID == 0 {
		return response.Error(http.StatusBadRequest, "Не указан ID акции")
	}
	imageURL, isActive := data.defaults()

	p, err := scanPromotion(db.QueryRowContext(ctx, `
		UPDATE promotions
		SET title = $1, description = $2, discount = $3, image_url = $4, valid_until = $5, is_active = $6
		WHERE id = $7
		RETURNING `+promoColumns,
		data.Title, data.Description, data.Discount, imageURL, data.ValidUntil, isActive, data.ID))
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Акция не найдена")
	}
	if err != nil {
		log.Printf("Error updating promotion %d: %v", data.ID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось обновить акцию")
	}
	return response.OK(p)
}

func deletePromotion(rawID string) events.APIGatewayProxyResponse {
	if rawID == "" {
		return response.Error(http.StatusBadRequest, "Не указан ID акции")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return response.Error(http.StatusBadRequest, "Некорректный ID акции")
	}

	var deleted int64
	err = db.QueryRowContext(ctx, `DELETE FROM promotions WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Акция не найдена")
	}
	if err != nil {
		log.Printf("Error deleting promotion %d: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось удалить акцию")
	}
	return response.OK(map[string]string{"message": "Акция удалена"})
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
