// Package response builds API Gateway responses with the CORS headers
// every function of the storefront exposes.
package response

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

func corsHeaders(methods string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": methods,
		"Access-Control-Allow-Headers": "Content-Type, X-Authorization",
	}
}

// Preflight answers an OPTIONS request.
func Preflight(methods string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    corsHeaders(methods),
		Body:       "",
	}
}

// JSON marshals v and returns it with the given status code.
func JSON(status int, v interface{}) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling response body: %v", err)
		return Error(http.StatusInternalServerError, "Failed to format response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    corsHeaders("GET, POST, PUT, DELETE, OPTIONS"),
		Body:       string(body),
	}
}

// OK is JSON with status 200.
func OK(v interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusOK, v)
}

// Success returns the {"success": true} body used by mutation actions.
func Success() events.APIGatewayProxyResponse {
	return OK(map[string]bool{"success": true})
}

// Error returns a {"error": msg} body with the given status code.
func Error(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    corsHeaders("GET, POST, PUT, DELETE, OPTIONS"),
		Body:       string(body),
	}
}

// MethodNotAllowed is the shared 405 response.
func MethodNotAllowed() events.APIGatewayProxyResponse {
	return Error(http.StatusMethodNotAllowed, "Метод не поддерживается")
}
