package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Zaharka0/tobacco-store-design/models"
	"github.com/Zaharka0/tobacco-store-design/pkg/response"
)

func analyticsStats() events.APIGatewayProxyResponse {
	var stats models.AnalyticsStats

	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as total_views,
			COUNT(DISTINCT user_ip) as unique_visitors,
			COUNT(CASE WHEN created_at > NOW() - INTERVAL '24 hours' THEN 1 END) as views_today,
			COUNT(CASE WHEN created_at > NOW() - INTERVAL '7 days' THEN 1 END) as views_week
		FROM page_views`).
		Scan(&stats.Views.Total, &stats.Views.Unique, &stats.Views.Today, &stats.Views.Week)
	if err != nil {
		log.Printf("Error loading view stats: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить статистику")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT page_url, COUNT(*) as views
		FROM page_views
		GROUP BY page_url
		ORDER BY views DESC
		LIMIT 10`)
	if err != nil {
		log.Printf("Error loading top pages: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить статистику")
	}
	defer rows.Close()

	stats.TopPages = []models.PageView{}
	for rows.Next() {
		var pv models.PageView
		if err := rows.Scan(&pv.Page, &pv.Views); err != nil {
			log.Printf("Error scanning top page: %v", err)
			continue
		}
		stats.TopPages = append(stats.TopPages, pv)
	}

	err = db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as total_orders,
			COUNT(CASE WHEN status = 'new' THEN 1 END) as new_orders,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) as completed_orders,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN total_price ELSE 0 END), 0) as total_revenue
		FROM orders`).
		Scan(&stats.Orders.Total, &stats.Orders.New, &stats.Orders.Completed, &stats.Orders.Revenue)
	if err != nil {
		log.Printf("Error loading order stats: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось загрузить статистику")
	}

	return response.OK(stats)
}

func trackPageView(request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req struct {
		PageURL  string `json:"page_url"`
		Referrer string `json:"referrer"`
	}
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return response.Error(http.StatusBadRequest, "Некорректное тело запроса")
	}
	if req.PageURL == "" {
		req.PageURL = "/"
	}
	userIP := request.RequestContext.Identity.SourceIP
	userAgent := request.Headers["user-agent"]

	if _, err := db.ExecContext(ctx,
		`INSERT INTO page_views (page_url, user_ip, user_agent, referrer) VALUES ($1, $2, $3, $4)`,
		req.PageURL, userIP, userAgent, req.Referrer); err != nil {
		log.Printf("Error tracking page view: %v", err)
		return response.Error(http.StatusInternalServerError, "Не удалось записать просмотр")
	}
	return response.Success()
}
