// The site-content function bundles the storefront's dynamic data:
// cart lifecycle, orders, admin notifications, page-view analytics and
// the site-wide key-value content store. Actions are selected with the
// ?action= query parameter, matching the deployed function contract.
package main

import (
	"context"
	"database/sql"
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
	if request.HTTPMethod == http.MethodOptions {
		return response.Preflight("GET, POST, PUT, DELETE, OPTIONS"), nil
	}

	action := request.QueryStringParameters["action"]
	method := request.HTTPMethod

	switch {
	case action == "cart" && method == http.MethodPost:
		return createCart(request.Body), nil
	case action == "cart-item" && method == http.MethodPost:
		return addCartItem(request.Body), nil
	case action == "cart-items" && method == http.MethodGet:
		return listCartItems(request.QueryStringParameters["cart_id"]), nil
	case action == "cart-item-remove" && method == http.MethodDelete:
		return removeCartItem(request.QueryStringParameters["item_id"]), nil
	case action == "cart-checkout" && method == http.MethodPost:
		return checkoutCart(request.Body), nil

	case action == "order" && method == http.MethodPost:
		return createOrder(request.Body), nil
	case action == "orders" && method == http.MethodGet:
		return listOrders(), nil
	case action == "order-status" && method == http.MethodPut:
		if resp, ok := requireAdmin(request); !ok {
			return resp, nil
		}
		return updateOrderStatus(request.Body), nil

	case action == "notifications" && method == http.MethodGet:
		return listNotifications(), nil
	case action == "notification-read" && method == http.MethodPut:
		return markNotificationRead(request.Body), nil

	case action == "analytics-stats" && method == http.MethodGet:
		return analyticsStats(), nil
	case action == "analytics-track" && method == http.MethodPost:
		return trackPageView(request), nil

	case method == http.MethodGet:
		return getSiteContent(request.QueryStringParameters["section"]), nil
	case method == http.MethodPut:
		if resp, ok := requireAdmin(request); !ok {
			return resp, nil
		}
		return updateSiteContent(request.Body), nil
	}

	return response.MethodNotAllowed(), nil
}

func requireAdmin(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, bool) {
	header := request.Headers["X-Authorization"]
	if header == "" {
		header = request.Headers["x-authorization"]
	}
	if err := auth.VerifyAdmin(header); err != nil {
		log.Printf("Rejected admin request: %v", err)
		return response.Error(http.StatusUnauthorized, "Требуется авторизация"), false
	}
	return events.APIGatewayProxyResponse{}, true
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
