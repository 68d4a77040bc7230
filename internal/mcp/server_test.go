package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backoffice/internal/catalog"
	"github.com/retailops/backoffice/pkg/types"
)

func setupServer(t *testing.T) *Server {
	dbPath := filepath.Join(t.TempDir(), "backoffice.db")
	server, err := NewServer(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.storage.Close() })
	return server
}

func registerActor(t *testing.T, s *Server, username string, role types.Role) int64 {
	user, err := s.auth.Register(context.Background(), username, "User "+username, "", "s3cret", role)
	require.NoError(t, err)
	return user.ID
}

func registerProduct(t *testing.T, s *Server, sku, price string, stock int) int64 {
	product, err := s.catalog.Create(context.Background(), catalog.ProductInput{
		Name:         "Product " + sku,
		SKU:          sku,
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		StockMinimum: 2,
	})
	require.NoError(t, err)
	return product.ID
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestServer_Initialization(t *testing.T) {
	server := setupServer(t)

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.processor)
	assert.NotNil(t, server.catalog)
	assert.NotNil(t, server.reports)
	assert.NotNil(t, server.auth)
}

func TestHandleCreateSale(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)
	productID := registerProduct(t, server, "P1", "10.00", 5)

	result, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(clerkID),
		"customer_name": "Juan Pérez",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(2)},
		},
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, "20.00", out["total"])
	assert.Equal(t, "completed", out["status"])
	assert.Contains(t, out["invoice_number"], "FAC-")
}

func TestHandleCreateSale_MissingParams(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)

	_, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(clerkID),
		"customer_name": "Juan",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleCreateSale_InsufficientStock(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)
	productID := registerProduct(t, server, "P1", "10.00", 1)

	_, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(clerkID),
		"customer_name": "Juan",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(3)},
		},
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeStock, mcpErr.Code)

	data, ok := mcpErr.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, types.CodeInsufficientStock, data["code"])
	assert.Equal(t, 1, data["available"])
	assert.Equal(t, 3, data["requested"])
}

func TestHandleCancelSale_PermissionDenied(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)

	// Cancellation stays admin-only
	_, err := server.handleCancelSale(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(clerkID),
		"sale_id":  float64(1),
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodePermission, mcpErr.Code)
}

func TestHandleCancelSale(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	productID := registerProduct(t, server, "P1", "10.00", 5)

	created, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(adminID),
		"customer_name": "Juan",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(2)},
		},
	}))
	require.NoError(t, err)
	saleID := resultJSON(t, created)["id"].(float64)

	result, err := server.handleCancelSale(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"sale_id":  saleID,
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, true, out["cancelled"])

	// Second attempt reports the sale state
	_, err = server.handleCancelSale(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"sale_id":  saleID,
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeSaleState, mcpErr.Code)
}

func TestHandleAdjustStock(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	productID := registerProduct(t, server, "P1", "10.00", 5)

	result, err := server.handleAdjustStock(ctx, callRequest(map[string]interface{}{
		"actor_id":   float64(adminID),
		"product_id": float64(productID),
		"operation":  "add",
		"quantity":   float64(7),
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, float64(12), out["stock"])

	_, err = server.handleAdjustStock(ctx, callRequest(map[string]interface{}{
		"actor_id":   float64(adminID),
		"product_id": float64(productID),
		"operation":  "multiply",
		"quantity":   float64(2),
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleUpsertProduct(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)

	created, err := server.handleUpsertProduct(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"name":     "Keyboard",
		"sku":      "KB-001",
		"price":    "59.90",
		"stock":    float64(10),
	}))
	require.NoError(t, err)
	out := resultJSON(t, created)
	productID := out["id"].(float64)
	assert.Equal(t, "59.90", out["price"])
	assert.Equal(t, true, out["active"])

	updated, err := server.handleUpsertProduct(ctx, callRequest(map[string]interface{}{
		"actor_id":   float64(adminID),
		"product_id": productID,
		"name":       "Keyboard v2",
		"price":      "64.90",
		"active":     false,
	}))
	require.NoError(t, err)
	out = resultJSON(t, updated)
	assert.Equal(t, "Keyboard v2", out["name"])
	assert.Equal(t, false, out["active"])
}

func TestHandleListProducts(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)
	registerProduct(t, server, "KB-001", "59.90", 10)
	registerProduct(t, server, "MS-001", "19.90", 10)

	result, err := server.handleListProducts(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(clerkID),
		"search":   "KB-",
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, float64(1), out["count"])
}

func TestHandleSalesReport_PermissionDenied(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)

	_, err := server.handleSalesReport(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(clerkID),
		"from":     "2025-06-01",
		"to":       "2025-06-30",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodePermission, mcpErr.Code)
}

func TestHandleSalesReport(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	productID := registerProduct(t, server, "P1", "10.00", 50)

	_, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(adminID),
		"customer_name": "Juan",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(3)},
		},
	}))
	require.NoError(t, err)

	result, err := server.handleSalesReport(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"from":     "2020-01-01",
		"to":       "2100-01-01",
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)

	totals := out["totals"].(map[string]interface{})
	assert.Equal(t, float64(1), totals["count"])
	assert.Equal(t, "30.00", totals["amount"])

	categories := out["by_category"].([]interface{})
	require.Len(t, categories, 1)
	rollup := categories[0].(map[string]interface{})
	assert.Equal(t, "30.00", rollup["revenue"])
	assert.Equal(t, float64(100), rollup["revenue_pct"])
}

func TestHandleSellerRanking(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	productID := registerProduct(t, server, "P1", "10.00", 50)

	_, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(adminID),
		"customer_name": "Juan",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(2)},
		},
	}))
	require.NoError(t, err)

	result, err := server.handleSellerRanking(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"from":     "2020-01-01",
		"to":       "2100-01-01",
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)

	sellers := out["sellers"].([]interface{})
	require.Len(t, sellers, 1)
	top := sellers[0].(map[string]interface{})
	assert.Equal(t, float64(adminID), top["seller_id"])
	assert.Equal(t, float64(1), top["sale_count"])
	assert.Equal(t, "20.00", top["revenue"])
	assert.Equal(t, float64(100), top["revenue_pct"])
}

func TestHandleSellerRanking_PermissionDenied(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	clerkID := registerActor(t, server, "clerk", types.RoleClerk)

	_, err := server.handleSellerRanking(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(clerkID),
		"from":     "2025-06-01",
		"to":       "2025-06-30",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodePermission, mcpErr.Code)
}

func TestHandleListSales_FilteredStatistics(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	productID := registerProduct(t, server, "P1", "10.00", 50)

	_, err := server.handleCreateSale(ctx, callRequest(map[string]interface{}{
		"actor_id":      float64(adminID),
		"customer_name": "Juan",
		"lines": []interface{}{
			map[string]interface{}{"product_id": float64(productID), "quantity": float64(2)},
		},
	}))
	require.NoError(t, err)

	result, err := server.handleListSales(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"customer": "NoSuchCustomer",
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)

	assert.Empty(t, out["sales"])
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["count"])
	assert.Equal(t, "0.00", stats["amount"])
}

func TestHandleSalesReport_BadRange(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)

	_, err := server.handleSalesReport(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
		"from":     "2025-06-30",
		"to":       "2025-06-01",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleDashboard(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	adminID := registerActor(t, server, "admin", types.RoleAdmin)
	registerProduct(t, server, "LOW", "10.00", 1)

	result, err := server.handleDashboard(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(adminID),
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, float64(1), out["active_products"])
	assert.Equal(t, float64(1), out["low_stock_count"])
}

func TestHandle_UnknownActor(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	_, err := server.handleDashboard(ctx, callRequest(map[string]interface{}{
		"actor_id": float64(9999),
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeAuthentication, mcpErr.Code)
}
