package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/retailops/backoffice/internal/auth"
	"github.com/retailops/backoffice/pkg/types"
)

// handleCreateSale handles the create_sale tool invocation
func (s *Server) handleCreateSale(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	actor, err := s.requireActor(ctx, args, auth.CapCreateSale)
	if err != nil {
		return nil, err
	}

	customerName, ok := args["customer_name"].(string)
	if !ok || customerName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "customer_name parameter is required", map[string]interface{}{
			"param":  "customer_name",
			"reason": "missing or empty",
		})
	}

	rawLines, ok := args["lines"].([]interface{})
	if !ok || len(rawLines) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "lines parameter is required and cannot be empty", map[string]interface{}{
			"param":  "lines",
			"reason": "missing or empty",
		})
	}

	req := types.SaleRequest{
		CustomerName:  customerName,
		CustomerEmail: getStringDefault(args, "customer_email", ""),
		CustomerPhone: getStringDefault(args, "customer_phone", ""),
		Lines:         make([]types.SaleRequestLine, 0, len(rawLines)),
	}
	for i, raw := range rawLines {
		line, ok := raw.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid sale line", map[string]interface{}{
				"param": "lines",
				"index": i,
			})
		}
		productID, ok := getInt64(line, "product_id")
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "line product_id is required", map[string]interface{}{
				"param": "lines",
				"index": i,
			})
		}
		quantity, ok := getInt64(line, "quantity")
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "line quantity is required", map[string]interface{}{
				"param": "lines",
				"index": i,
			})
		}
		req.Lines = append(req.Lines, types.SaleRequestLine{ProductID: productID, Quantity: int(quantity)})
	}

	sale, err := s.processor.CreateSale(ctx, actor.ID, req)
	if err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(saleJSON(sale))), nil
}

// handleCancelSale handles the cancel_sale tool invocation
func (s *Server) handleCancelSale(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	actor, err := s.requireActor(ctx, args, auth.CapCancelSale)
	if err != nil {
		return nil, err
	}

	saleID, ok := getInt64(args, "sale_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "sale_id parameter is required", map[string]interface{}{
			"param":  "sale_id",
			"reason": "missing or not an integer",
		})
	}

	if err := s.processor.CancelSale(ctx, actor.ID, saleID); err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cancelled": true,
		"sale_id":   saleID,
	})), nil
}

// handleGetSale handles the get_sale tool invocation
func (s *Server) handleGetSale(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewSales); err != nil {
		return nil, err
	}

	saleID, ok := getInt64(args, "sale_id")
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "sale_id parameter is required", map[string]interface{}{
			"param":  "sale_id",
			"reason": "missing or not an integer",
		})
	}

	sale, err := s.processor.GetSale(ctx, saleID)
	if err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(saleJSON(sale))), nil
}

// handleListSales handles the list_sales tool invocation
func (s *Server) handleListSales(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewSales); err != nil {
		return nil, err
	}

	filter := types.SaleFilter{
		Customer: getStringDefault(args, "customer", ""),
		Status:   types.SaleStatus(getStringDefault(args, "status", "")),
		OrderBy:  getStringDefault(args, "order_by", "created_at"),
		Desc:     getBoolDefault(args, "desc", false),
		Limit:    getIntDefault(args, "limit", 50),
		Offset:   getIntDefault(args, "offset", 0),
	}
	if from, err := parseDate(args, "from"); err == nil {
		filter.From = &from
	}
	if to, err := parseDate(args, "to"); err == nil {
		filter.To = &to
	}
	if sellerID, ok := getInt64(args, "seller_id"); ok {
		filter.SellerID = &sellerID
	}

	sales, stats, err := s.reports.SalesListing(ctx, filter)
	if err != nil {
		return nil, domainError(err)
	}

	items := make([]map[string]interface{}, 0, len(sales))
	for _, sale := range sales {
		items = append(items, saleJSON(sale))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"sales": items,
		"statistics": map[string]interface{}{
			"count":   stats.Count,
			"amount":  stats.Amount.StringFixed(2),
			"average": stats.Average.StringFixed(2),
		},
	})), nil
}
