package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Zaharka0/tobacco-store-design/models"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

// createCart returns the newest active cart for the phone, creating one
// when none exists. The client treats the returned id as its cart
// identity from then on.
func createCart(body string) events.APIGatewayProxyResponse {
	var req struct {
		UserPhone string `json:"user_phone"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.UserPhone == "" {
		return response.Error(http.StatusBadRequest, "user_phone required")
	}

	var cartID int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE user_phone = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1`,
		req.UserPhone).Scan(&cartID)
	if err == sql.ErrNoRows {
		err = db.QueryRowContext(ctx,
			`INSERT INTO carts (user_phone, session_id, status) VALUES ($1, $2, 'active') RETURNING id`,
			req.UserPhone, req.SessionID).Scan(&cartID)
	}
	if err != nil {
		log.Printf("Error creating cart for %s: %v", req.UserPhone, err)
		return response.Error(http.StatusInternalServerError, "Не удалось создать корзину")
	}
	return response.OK(map[string]int64{"cart_id": cartID})
}

// addCartItem inserts a line item, bumping the quantity when the cart
// already holds the product.
func addCartItem(body string) events.APIGatewayProxyResponse {
	var req struct {
		CartID       int64   `json:"cart_id"`
		ProductID    int64   `json:"product_id"`
		ProductName  string  `json:"product_name"`
		ProductPrice float64 `json:"product_price"`
		Quantity     int     `json:"quantity"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.CartID == 0 {
		return response.Error(http.StatusBadRequest, "cart_id required")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var existingID int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		req.CartID, req.ProductID).Scan(&existingID)
	switch err {
	case nil:
		_, err = db.ExecContext(ctx,
			`UPDATE cart_items SET quantity = quantity + $1 WHERE id = $2`,
			req.Quantity, existingID)
	case sql.ErrNoRows:
		_, err = db.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, product_name, product_price, quantity) VALUES ($1, $2, $3, $4, $5)`,
			req.CartID, req.ProductID, req.ProductName, req.ProductPrice, req.Quantity)
	}
	if err != nil {
		log.Printf("Error adding item to cart %d: %v", req.CartID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось добавить товар")
	}
	return response.Success()
}

// listCartItems returns the line items with totals computed server-side;
// clients trust these numbers verbatim.
func listCartItems(rawCartID string) events.APIGatewayProxyResponse {
	if rawCartID == "" {
		return response.Error(http.StatusBadRequest, "cart_id required")
	}
	cartID, err := strconv.ParseInt(rawCartID, 10, 64)
	if err != nil {
		return response.Error(http.StatusBadRequest, "cart_id required")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, product_name, product_price, quantity FROM cart_items WHERE cart_id = $1`,
		cartID)
	if err != nil {
		log.Printf("Error loading cart %d: %v", cartID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить корзину")
	}
	defer rows.Close()

	resp := models.CartItemsResponse{Items: []models.CartItem{}}
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity); err != nil {
			log.Printf("Error scanning cart item: %v", err)
			continue
		}
		it.Total = it.ProductPrice * float64(it.Quantity)
		resp.Total += it.Total
		resp.Items = append(resp.Items, it)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating cart %d items: %v", cartID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить корзину")
	}
	return response.OK(resp)
}

// removeCartItem deletes by line-item id. Deleting an absent id is not
// an error; the client reloads to current contents either way.
func removeCartItem(rawItemID string) events.APIGatewayProxyResponse {
	if rawItemID == "" {
		return response.Error(http.StatusBadRequest, "item_id required")
	}
	itemID, err := strconv.ParseInt(rawItemID, 10, 64)
	if err != nil {
		return response.Error(http.StatusBadRequest, "item_id required")
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID); err != nil {
		log.Printf("Error removing cart item %d: %v", itemID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось удалить товар")
	}
	return response.Success()
}

// checkoutCart marks the cart handed off to the Telegram bot.
func checkoutCart(body string) events.APIGatewayProxyResponse {
	var req struct {
		CartID         int64  `json:"cart_id"`
		TelegramUserID string `json:"telegram_user_id"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.CartID == 0 {
		return response.Error(http.StatusBadRequest, "cart_id required")
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE carts SET status = 'checkout', telegram_user_id = $1 WHERE id = $2`,
		req.TelegramUserID, req.CartID); err != nil {
		log.Printf("Error checking out cart %d: %v", req.CartID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось оформить корзину")
	}
	return response.Success()
}
