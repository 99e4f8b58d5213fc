package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Zaharka0/tobacco-store-design/models"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

// createOrder records an order and fans out an admin notification.
func createOrder(body string) events.APIGatewayProxyResponse {
	var req struct {
		UserName     string  `json:"user_name"`
		UserPhone    string  `json:"user_phone"`
		UserEmail    string  `json:"user_email"`
		ProductName  string  `json:"product_name"`
		ProductPrice float64 `json:"product_price"`
		Quantity     int     `json:"quantity"`
		TotalPrice   float64 `json:"total_price"`
		Notes        string  `json:"notes"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var orderID int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO orders (user_name, user_phone, user_email, product_name, product_price, quantity, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		req.UserName, req.UserPhone, req.UserEmail, req.ProductName,
		req.ProductPrice, req.Quantity, req.TotalPrice, req.Notes).Scan(&orderID)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось создать заказ")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_notifications (title, message, type, link)
		VALUES ($1, $2, $3, $4)`,
		"Новый заказ",
		fmt.Sprintf("Заказ #%d от %s на %g ₽", orderID, req.UserName, req.TotalPrice),
		"order",
		fmt.Sprintf("/admin/orders/%d", orderID))
	if err != nil {
		// The order itself stands; the missing notification is logged only.
		log.Printf("Error creating admin notification for order %d: %v", orderID, err)
	}

	return response.OK(map[string]interface{}{"success": true, "order_id": orderID})
}

func listOrders() events.APIGatewayProxyResponse {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_name, user_phone, user_email, product_name,
		       product_price, quantity, total_price, status, notes, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT 100`)
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить заказы")
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserName, &o.UserPhone, &o.UserEmail, &o.ProductName,
			&o.ProductPrice, &o.Quantity, &o.TotalPrice, &o.Status, &o.Notes, &o.CreatedAt); err != nil {
			log.Printf("Error scanning order: %v", err)
			continue
		}
		orders = append(orders, o)
	}
	return response.OK(map[string][]models.Order{"orders": orders})
}

func updateOrderStatus(body string) events.APIGatewayProxyResponse {
	var req struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.ID == 0 || req.Status == "" {
		return response.Error(http.StatusBadRequest, "id и status обязательны")
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		req.Status, req.ID); err != nil {
		log.Printf("Error updating order %d status: %v", req.ID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось обновить заказ")
	}
	return response.Success()
}

func listNotifications() events.APIGatewayProxyResponse {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, message, type, is_read, link, created_at
		FROM admin_notifications
		ORDER BY created_at DESC
		LIMIT 50`)
	if err != nil {
		log.Printf("Error listing notifications: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить уведомления")
	}
	defer rows.Close()

	notifs := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Link, &n.CreatedAt); err != nil {
			log.Printf("Error scanning notification: %v", err)
			continue
		}
		notifs = append(notifs, n)
	}
	return response.OK(map[string][]models.Notification{"notifications": notifs})
}

func markNotificationRead(body string) events.APIGatewayProxyResponse {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil || req.ID == 0 {
		return response.Error(http.StatusBadRequest, "id required")
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE admin_notifications SET is_read = TRUE WHERE id = $1`, req.ID); err != nil {
		log.Printf("Error marking notification %d read: %v", req.ID, err)
		return response.Error(http.StatusInternalServerError, "Не удалось обновить уведомление")
	}
	return response.Success()
}
