package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/backoffice/internal/auth"
	"github.com/retailops/backoffice/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeProductState   = -32001 // Product missing, inactive, or invalid
	ErrorCodeStock          = -32002 // Stock cannot cover the request
	ErrorCodeSaleState      = -32003 // Sale missing or in the wrong status
	ErrorCodeAuthentication = -32004 // Unknown actor or bad credentials
	ErrorCodePermission     = -32005 // Actor lacks the required capability
)

// domainErrorCodes maps stable domain codes to protocol error codes
var domainErrorCodes = map[string]int{
	types.CodeProductNotFound:    ErrorCodeProductState,
	types.CodeProductInactive:    ErrorCodeProductState,
	types.CodeInvalidProduct:     ErrorCodeInvalidParams,
	types.CodeDuplicateSKU:       ErrorCodeProductState,
	types.CodeInsufficientStock:  ErrorCodeStock,
	types.CodeInvalidQuantity:    ErrorCodeInvalidParams,
	types.CodeEmptySale:          ErrorCodeInvalidParams,
	types.CodeSaleNotFound:       ErrorCodeSaleState,
	types.CodeAlreadyCancelled:   ErrorCodeSaleState,
	types.CodeSaleNotCompleted:   ErrorCodeSaleState,
	types.CodeInvalidCredentials: ErrorCodeAuthentication,
	types.CodePermissionDenied:   ErrorCodePermission,
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// domainError converts a core error into a protocol error carrying the
// stable domain code
func domainError(err error) error {
	domainCode := types.ErrorCode(err)
	code, ok := domainErrorCodes[domainCode]
	if !ok {
		return newMCPError(ErrorCodeInternalError, "operation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	data := map[string]interface{}{"code": domainCode}
	var insufficient *types.InsufficientStockError
	if errors.As(err, &insufficient) {
		data["product_id"] = insufficient.ProductID
		data["available"] = insufficient.Available
		data["requested"] = insufficient.Requested
	}
	return newMCPError(code, err.Error(), data)
}

// requireActor resolves actor_id from the arguments and checks the
// capability when one is given
func (s *Server) requireActor(ctx context.Context, args map[string]interface{}, cap auth.Capability) (auth.Actor, error) {
	actorID, ok := getInt64(args, "actor_id")
	if !ok {
		return auth.Actor{}, newMCPError(ErrorCodeInvalidParams, "actor_id parameter is required", map[string]interface{}{
			"param":  "actor_id",
			"reason": "missing or not an integer",
		})
	}

	actor, err := s.auth.ActorByID(ctx, actorID)
	if err != nil {
		return auth.Actor{}, domainError(err)
	}
	if cap != "" {
		if err := s.auth.Gate().Require(actor, cap); err != nil {
			return auth.Actor{}, domainError(err)
		}
	}
	return actor, nil
}

// Parameter helpers

func getInt64(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if v, ok := getInt64(args, key); ok {
		return int(v)
	}
	return defaultValue
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getDecimal parses a currency parameter given as a JSON number or string
func getDecimal(args map[string]interface{}, key string) (decimal.Decimal, error) {
	switch v := args[key].(type) {
	case float64:
		return decimal.NewFromFloat(v).Round(2), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a valid amount: %q", v)
		}
		return d, nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing")
	}
	return decimal.Zero, fmt.Errorf("not a number or string")
}

// parseDate parses a YYYY-MM-DD parameter
func parseDate(args map[string]interface{}, key string) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", raw)
	}
	return t, nil
}

// requireDateRange parses the from/to pair shared by the reporting tools
func requireDateRange(args map[string]interface{}) (types.Period, error) {
	from, err := parseDate(args, "from")
	if err != nil {
		return types.Period{}, newMCPError(ErrorCodeInvalidParams, "from parameter is required", map[string]interface{}{
			"param":  "from",
			"reason": err.Error(),
		})
	}
	to, err := parseDate(args, "to")
	if err != nil {
		return types.Period{}, newMCPError(ErrorCodeInvalidParams, "to parameter is required", map[string]interface{}{
			"param":  "to",
			"reason": err.Error(),
		})
	}
	if to.Before(from) {
		return types.Period{}, newMCPError(ErrorCodeInvalidParams, "to must not precede from", map[string]interface{}{
			"param": "to",
		})
	}
	return types.Period{From: from, To: to}, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// Response shaping helpers

func saleJSON(sale *types.Sale) map[string]interface{} {
	lines := make([]map[string]interface{}, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		lines = append(lines, map[string]interface{}{
			"product_id": line.ProductID,
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice.StringFixed(2),
			"subtotal":   line.Subtotal.StringFixed(2),
		})
	}
	out := map[string]interface{}{
		"id":             sale.ID,
		"customer_name":  sale.CustomerName,
		"total":          sale.Total.StringFixed(2),
		"status":         string(sale.Status),
		"invoice_number": sale.InvoiceNumber,
		"seller_id":      sale.SellerID,
		"created_at":     sale.CreatedAt.Format(time.RFC3339),
	}
	if sale.CustomerEmail != "" {
		out["customer_email"] = sale.CustomerEmail
	}
	if sale.CustomerPhone != "" {
		out["customer_phone"] = sale.CustomerPhone
	}
	if len(lines) > 0 {
		out["lines"] = lines
	}
	return out
}

func productJSON(product *types.Product) map[string]interface{} {
	out := map[string]interface{}{
		"id":            product.ID,
		"name":          product.Name,
		"sku":           product.SKU,
		"price":         product.Price.StringFixed(2),
		"stock":         product.Stock,
		"stock_minimum": product.StockMinimum,
		"active":        product.Active,
	}
	if product.Description != "" {
		out["description"] = product.Description
	}
	if product.Category != "" {
		out["category"] = product.Category
	}
	if product.ImageURL != "" {
		out["image_url"] = product.ImageURL
	}
	return out
}
