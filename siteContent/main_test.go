package main

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zaharka0/tobacco-store-design/models"
)

func setupDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db = mockDB
	return mock
}

func TestCreateCartReusesActiveCart(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`SELECT id FROM carts WHERE user_phone = \$1 AND status = 'active'`).
		WithArgs("79990000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart"},
		Body:                  `{"user_phone":"79990000000","session_id":"1725200000000"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cart_id":12}`, resp.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCartInsertsWhenNoneActive(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`SELECT id FROM carts WHERE user_phone = \$1 AND status = 'active'`).
		WithArgs("79990000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO carts (user_phone, session_id, status) VALUES ($1, $2, 'active') RETURNING id`)).
		WithArgs("79990000000", "1725200000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(13))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart"},
		Body:                  `{"user_phone":"79990000000","session_id":"1725200000000"}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart_id":13}`, resp.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCartRequiresPhone(t *testing.T) {
	setupDB(t)
	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart"},
		Body:                  `{"session_id":"x"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddCartItemInsertsNewLine(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`SELECT id FROM cart_items WHERE cart_id = \$1 AND product_id = \$2`).
		WithArgs(int64(12), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO cart_items (cart_id, product_id, product_name, product_price, quantity) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(int64(12), int64(7), "USB-C Кабель", 350.0, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart-item"},
		Body:                  `{"cart_id":12,"product_id":7,"product_name":"USB-C Кабель","product_price":350,"quantity":1}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, resp.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCartItemBumpsExistingQuantity(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`SELECT id FROM cart_items WHERE cart_id = \$1 AND product_id = \$2`).
		WithArgs(int64(12), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(201))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET quantity = quantity + $1 WHERE id = $2`)).
		WithArgs(1, int64(201)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart-item"},
		Body:                  `{"cart_id":12,"product_id":7,"product_name":"USB-C Кабель","product_price":350}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCartItemsComputesTotals(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`SELECT id, product_id, product_name, product_price, quantity FROM cart_items WHERE cart_id = \$1`).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "product_name", "product_price", "quantity"}).
			AddRow(201, 7, "USB-C Кабель", 350.0, 2).
			AddRow(202, 4, "Жидкость Ягодный Микс", 450.0, 1))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"action": "cart-items", "cart_id": "12"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.CartItemsResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	require.Len(t, out.Items, 2)
	assert.Equal(t, 700.0, out.Items[0].Total)
	assert.Equal(t, 450.0, out.Items[1].Total)
	assert.Equal(t, 1150.0, out.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCartItemsRequiresCartID(t *testing.T) {
	setupDB(t)
	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"action": "cart-items"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveCartItemAbsentIDSucceeds(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE id = $1`)).
		WithArgs(int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodDelete,
		QueryStringParameters: map[string]string{"action": "cart-item-remove", "item_id": "999"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, resp.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderFansOutNotification(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(55))
	mock.ExpectExec(`INSERT INTO admin_notifications`).
		WithArgs("Новый заказ", "Заказ #55 от Иван на 1150 ₽", "order", "/admin/orders/55").
		WillReturnResult(sqlmock.NewResult(1, 1))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "order"},
		Body:                  `{"user_name":"Иван","user_phone":"79990000000","product_name":"USB-C Кабель","product_price":350,"quantity":1,"total_price":1150}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"order_id":55`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutCartMarksStatus(t *testing.T) {
	mock := setupDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET status = 'checkout', telegram_user_id = $1 WHERE id = $2`)).
		WithArgs("555001", int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := handler(events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		QueryStringParameters: map[string]string{"action": "cart-checkout"},
		Body:                  `{"cart_id":12,"telegram_user_id":"555001"}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, resp.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}
