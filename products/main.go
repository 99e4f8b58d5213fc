package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-redis/redis/v8"

	"github.com/Zaharka0/tobacco-store-design/models"
	"github.com/Zaharka0/tobacco-store-design/pkg/auth"
	"github.com/Zaharka0/tobacco-store-design/pkg/cache"
	"github.com/Zaharka0/tobacco-store-design/pkg/config"
	"github.com/Zaharka0/tobacco-store-design/pkg/database"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

var (
	db  *sql.DB
	rdb *redis.Client
	ctx = context.Background()
)

const productColumns = `id, name, price, category, image_url, short_description, full_description, features, in_stock, is_new, discount, created_at, updated_at`

func handler(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod {
	case http.MethodOptions:
		return response.Preflight("GET, POST, PUT, DELETE, OPTIONS"), nil

	case http.MethodGet:
		params := request.QueryStringParameters
		if rawID := params["id"]; rawID != "" {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				return response.Error(http.StatusBadRequest, "Некорректный ID товара"), nil
			}
			return getProduct(id), nil
		}
		return listProducts(params), nil

	case http.MethodPost, http.MethodPut, http.MethodDelete:
		if err := auth.VerifyAdmin(adminHeader(request)); err != nil {
			log.Printf("Rejected admin request: %v", err)
			return response.Error(http.StatusUnauthorized, "Требуется авторизация"), nil
		}
		switch request.HTTPMethod {
		case http.MethodPost:
			return createProduct(request.Body), nil
		case http.MethodPut:
			return updateProduct(request.Body), nil
		default:
			return deleteProduct(request.QueryStringParameters["id"]), nil
		}
	}

	return response.MethodNotAllowed(), nil
}

func adminHeader(request events.APIGatewayProxyRequest) string {
	if v := request.Headers["X-Authorization"]; v != "" {
		return v
	}
	return request.Headers["x-authorization"]
}

// listProducts serves the catalog. The plain unfiltered list is served
// Redis-first with a DB fallback; category and limit/offset queries go
// straight to the database.
func listProducts(params map[string]string) events.APIGatewayProxyResponse {
	category := params["category"]
	limit, _ := strconv.Atoi(params["limit"])
	offset, _ := strconv.Atoi(params["offset"])

	if category == "" && limit == 0 && offset == 0 {
		products, err := getProductsFromCache()
		if err == nil {
			return response.OK(products)
		}
		log.Printf("Error fetching from Redis (%v), falling back to DB.", err)
	}

	products, err := getProductsFromDB(category, limit, offset)
	if err != nil {
		log.Printf("Error fetching products from DB: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить товары")
	}

	if category == "" && limit == 0 && offset == 0 {
		// Re-populate the cache off the request path.
		go func() {
			if err := populateCache(products); err != nil {
				log.Printf("Failed to populate cache after DB fetch: %v", err)
			}
		}()
	}
	return response.OK(products)
}

func getProduct(id int64) events.APIGatewayProxyResponse {
	row := db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Товар не найден")
	}
	if err != nil {
		log.Printf("Error fetching product %d: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить товар")
	}
	return response.OK(p)
}

type productPayload struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Price            float64           `json:"price"`
	Category         string            `json:"category"`
	ImageURL         string            `json:"image_url"`
	ShortDescription string            `json:"short_description"`
	FullDescription  string            `json:"full_description"`
	Features         map[string]string `json:"features"`
	InStock          *bool             `json:"in_stock"`
	IsNew            bool              `json:"is_new"`
	Discount         int               `json:"discount"`
}

func (p *productPayload) defaults() (imageURL string, inStock bool, features []byte) {
	imageURL = p.ImageURL
	if imageURL == "" {
		imageURL = "/placeholder.svg"
	}
	inStock = true
	if p.InStock != nil {
		inStock = *p.InStock
	}
	if p.Features == nil {
		p.Features = map[string]string{}
	}
	features, _ = json.Marshal(p.Features)
	return imageURL, inStock, features
}

func createProduct(body string) events.APIGatewayProxyResponse {
	var data productPayload
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	if data.Name == "" || data.Category == "" {
		return response.Error(http.StatusBadRequest, "Название и категория обязательны")
	}
	imageURL, inStock, features := data.defaults()

	row := db.QueryRowContext(ctx, `
		INSERT INTO products
		(name, price, category, image_url, short_description, full_description, features, in_stock, is_new, discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+productColumns,
		data.Name, data.Price, data.Category, imageURL,
		data.ShortDescription, data.FullDescription, features,
		inStock, data.IsNew, data.Discount)

	p, err := scanProduct(row)
	if err != nil {
		log.Printf("Error creating product %q: %v", data.Name, err)
		return response.Error(http.StatusInternalServerError, "Не удалось создать товар")
	}
	invalidateCache()
	return response.JSON(http.StatusCreated, p)
}

func updateProduct(body string) events.APIGatewayProxyResponse {
	var data productPayload
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	if data.ID == 0 {
		return response.Error(http.StatusBadRequest, "Не указан ID товара")
	}
	imageURL, inStock, features := data.defaults()

	row := db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $1, price = $2, category = $3, image_url = $4,
		    short_description = $5, full_description = $6, features = $7,
		    in_stock = $8, is_new = $9, discount = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING `+productColumns,
		data.Name, data.Price, data.Category, imageURL,
		data.ShortDescription, data.FullDescription, features,
		inStock, data.IsNew, data.Discount, data.ID)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Товар не найден")
	}
	if err != nil {
		log.Printf("Error updating product %d: %v", data.ID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось обновить товар")
	}
	invalidateCache()
	return response.OK(p)
}

func deleteProduct(rawID string) events.APIGatewayProxyResponse {
	if rawID == "" {
		return response.Error(http.StatusBadRequest, "Не указан ID товара")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return response.Error(http.StatusBadRequest, "Некорректный ID товара")
	}

	var deleted int64
	err = db.QueryRowContext(ctx, `DELETE FROM products WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if err == sql.ErrNoRows {
		return response.Error(http.StatusNotFound, "Товар не найден")
	}
	if err != nil {
		log.Printf("Error deleting product %d: %v", id, err)
		return response.Error(http.StatusInternalServerError, "Не удалось удалить товар")
	}
	invalidateCache()
	return response.OK(map[string]string{"message": "Товар удален"})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	var imageSQL sql.NullString
	var featuresRaw []byte
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &imageSQL,
		&p.ShortDescription, &p.FullDescription, &featuresRaw,
		&p.InStock, &p.IsNew, &p.Discount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Product{}, err
	}
	if imageSQL.Valid {
		p.ImageURL = imageSQL.String
	}
	p.Features = map[string]string{}
	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &p.Features); err != nil {
			log.Printf("Error decoding features of product %d: %v", p.ID, err)
		}
	}
	return p, nil
}

func getProductsFromDB(category string, limit, offset int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Printf("Error scanning product row: %v", err)
			continue
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during product row iteration: %w", err)
	}
	return products, nil
}

// getProductsFromCache reads every cached product through the id set
// and a single MGET.
func getProductsFromCache() ([]models.Product, error) {
	productIDs, err := rdb.SMembers(ctx, "all_product_ids").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get all_product_ids from Redis: %w", err)
	}
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("no product IDs in Redis cache set")
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = "product:" + id
	}
	results, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to MGET products from Redis: %w", err)
	}

	products := []models.Product{}
	for _, res := range results {
		if res == nil {
			// Key expired or evicted; the DB fallback covers it on a full miss.
			continue
		}
		raw, ok := res.(string)
		if !ok {
			log.Printf("Unexpected type from Redis MGET: %T", res)
			continue
		}
		var p models.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.Printf("Failed to unmarshal cached product: %v", err)
			continue
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("all cached products were invalid or missing, forcing DB fetch")
	}
	return products, nil
}

// populateCache rewrites the per-product keys and the id set so the
// cache mirrors the database.
func populateCache(products []models.Product) error {
	pipe := rdb.Pipeline()
	allIDs := make([]interface{}, 0, len(products))
	for _, p := range products {
		raw, err := json.Marshal(p)
		if err != nil {
			log.Printf("Failed to marshal product %d for cache: %v", p.ID, err)
			continue
		}
		id := strconv.FormatInt(p.ID, 10)
		pipe.Set(ctx, "product:"+id, raw, 5*time.Minute)
		allIDs = append(allIDs, id)
	}
	pipe.Del(ctx, "all_product_ids")
	if len(allIDs) > 0 {
		pipe.SAdd(ctx, "all_product_ids", allIDs...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for cache population: %w", err)
	}
	return nil
}

// invalidateCache drops the id set so the next list rebuilds the cache.
func invalidateCache() {
	if err := rdb.Del(ctx, "all_product_ids").Err(); err != nil {
		log.Printf("Failed to invalidate product cache: %v", err)
	}
}

func main() {
	config.LoadEnv()

	dbClient, err := database.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize DB client: %v", err)
	}
	defer dbClient.Close()
	db = dbClient.DB()

	cacheClient, err := cache.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer cacheClient.Close()
	rdb = cacheClient.Redis()

	lambda.Start(handler)
}
