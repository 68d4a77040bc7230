package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/retailops/backoffice/internal/auth"
	"github.com/retailops/backoffice/internal/catalog"
	"github.com/retailops/backoffice/internal/storage"
	"github.com/retailops/backoffice/pkg/types"
)

// handleAdjustStock handles the adjust_stock tool invocation
func (s *Server) handleAdjustStock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	actor, err := s.requireActor(ctx, args, auth.CapAdjustStock)
	if err != nil {
		return nil, err
	}

	productID, ok := getInt64(args, "product_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "product_id parameter is required", map[string]interface{}{
			"param":  "product_id",
			"reason": "missing or not an integer",
		})
	}
	operation := getStringDefault(args, "operation", "")
	if operation != string(types.StockAdd) && operation != string(types.StockSubtract) {
		return nil, newMCPError(ErrorCodeInvalidParams, "operation must be add or subtract", map[string]interface{}{
			"param": "operation",
			"value": operation,
		})
	}
	quantity, ok := getInt64(args, "quantity")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "quantity parameter is required", map[string]interface{}{
			"param":  "quantity",
			"reason": "missing or not an integer",
		})
	}

	product, err := s.catalog.AdjustStock(ctx, actor.ID, productID, types.StockOperation(operation), int(quantity))
	if err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"product_id": product.ID,
		"stock":      product.Stock,
		"low_stock":  product.LowStock(),
	})), nil
}

// handleListProducts handles the list_products tool invocation
func (s *Server) handleListProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	// Any resolved actor may browse the catalog
	if _, err := s.requireActor(ctx, args, ""); err != nil {
		return nil, err
	}

	filter := storage.ProductFilter{
		Category:   getStringDefault(args, "category", ""),
		ActiveOnly: getBoolDefault(args, "active_only", true),
		Search:     getStringDefault(args, "search", ""),
		Limit:      getIntDefault(args, "limit", 50),
		Offset:     getIntDefault(args, "offset", 0),
	}

	products, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, domainError(err)
	}

	items := make([]map[string]interface{}, 0, len(products))
	for _, product := range products {
		items = append(items, productJSON(product))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"products": items,
		"count":    len(items),
	})), nil
}

// handleUpsertProduct handles the upsert_product tool invocation
func (s *Server) handleUpsertProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapManageCatalog); err != nil {
		return nil, err
	}

	price, err := getDecimal(args, "price")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "price parameter is required", map[string]interface{}{
			"param":  "price",
			"reason": err.Error(),
		})
	}

	in := catalog.ProductInput{
		Name:         getStringDefault(args, "name", ""),
		Description:  getStringDefault(args, "description", ""),
		Category:     getStringDefault(args, "category", ""),
		SKU:          getStringDefault(args, "sku", ""),
		Price:        price,
		Stock:        getIntDefault(args, "stock", 0),
		StockMinimum: getIntDefault(args, "stock_minimum", 0),
		ImageURL:     getStringDefault(args, "image_url", ""),
	}

	var product *types.Product
	productID, update := getInt64(args, "product_id")
	if update {
		product, err = s.catalog.Update(ctx, productID, in)
	} else {
		product, err = s.catalog.Create(ctx, in)
	}
	if err != nil {
		return nil, domainError(err)
	}

	// The active flag only makes sense on updates; creation is always active
	if active, given := args["active"].(bool); given && update && active != product.Active {
		if active {
			err = s.catalog.Restore(ctx, product.ID)
		} else {
			err = s.catalog.Deactivate(ctx, product.ID)
		}
		if err != nil {
			return nil, domainError(err)
		}
		product.Active = active
	}

	return mcp.NewToolResultText(formatJSON(productJSON(product))), nil
}
