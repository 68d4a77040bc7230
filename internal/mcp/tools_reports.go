package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/retailops/backoffice/internal/auth"
	"github.com/retailops/backoffice/pkg/types"
)

// handleSalesReport handles the sales_report tool invocation
func (s *Server) handleSalesReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewReports); err != nil {
		return nil, err
	}

	period, err := requireDateRange(args)
	if err != nil {
		return nil, err
	}
	bucket := types.Bucket(getStringDefault(args, "bucket", string(types.BucketDay)))
	topN := getIntDefault(args, "top_n", 10)

	rpt, err := s.reports.SalesReport(ctx, period, bucket, topN)
	if err != nil {
		return nil, domainError(err)
	}

	series := make([]map[string]interface{}, 0, len(rpt.Series))
	for _, point := range rpt.Series {
		series = append(series, map[string]interface{}{
			"period": point.Period,
			"count":  point.Count,
			"amount": point.Amount.StringFixed(2),
		})
	}
	categories := make([]map[string]interface{}, 0, len(rpt.ByCategory))
	for _, rank := range rpt.ByCategory {
		categories = append(categories, map[string]interface{}{
			"category":    rank.Category,
			"units_sold":  rank.UnitsSold,
			"revenue":     rank.Revenue.StringFixed(2),
			"revenue_pct": rank.RevenuePct,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"from": period.From.Format("2006-01-02"),
		"to":   period.To.Format("2006-01-02"),
		"totals": map[string]interface{}{
			"count":   rpt.Totals.Count,
			"amount":  rpt.Totals.Amount.StringFixed(2),
			"average": rpt.Totals.Average.StringFixed(2),
		},
		"count_growth_pct":  rpt.CountGrowth,
		"amount_growth_pct": rpt.AmountGrowth,
		"series":            series,
		"top_products":      productRanksJSON(rpt.TopProducts),
		"by_category":       categories,
	})), nil
}

// handleTopProducts handles the top_products tool invocation
func (s *Server) handleTopProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewReports); err != nil {
		return nil, err
	}

	period, err := requireDateRange(args)
	if err != nil {
		return nil, err
	}
	limit := getIntDefault(args, "limit", 10)

	ranks, err := s.reports.TopProducts(ctx, period, limit)
	if err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"from":     period.From.Format("2006-01-02"),
		"to":       period.To.Format("2006-01-02"),
		"products": productRanksJSON(ranks),
	})), nil
}

func productRanksJSON(ranks []types.ProductRank) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, map[string]interface{}{
			"product_id":     rank.ProductID,
			"name":           rank.Name,
			"units_sold":     rank.UnitsSold,
			"times_sold":     rank.TimesSold,
			"revenue":        rank.Revenue.StringFixed(2),
			"avg_unit_price": rank.AvgUnitPrice.StringFixed(2),
			"revenue_pct":    rank.RevenuePct,
			"units_pct":      rank.UnitsPct,
		})
	}
	return out
}

// handleSellerRanking handles the seller_ranking tool invocation
func (s *Server) handleSellerRanking(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewReports); err != nil {
		return nil, err
	}

	period, err := requireDateRange(args)
	if err != nil {
		return nil, err
	}
	limit := getIntDefault(args, "limit", 10)

	ranks, err := s.reports.SellerRanking(ctx, period, limit)
	if err != nil {
		return nil, domainError(err)
	}

	sellers := make([]map[string]interface{}, 0, len(ranks))
	for _, rank := range ranks {
		sellers = append(sellers, map[string]interface{}{
			"seller_id":   rank.SellerID,
			"name":        rank.SellerName,
			"sale_count":  rank.SaleCount,
			"revenue":     rank.Revenue.StringFixed(2),
			"revenue_pct": rank.RevenuePct,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"from":    period.From.Format("2006-01-02"),
		"to":      period.To.Format("2006-01-02"),
		"sellers": sellers,
	})), nil
}

// handleLowStock handles the low_stock tool invocation
func (s *Server) handleLowStock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewReports); err != nil {
		return nil, err
	}

	var threshold *int
	if v, ok := getInt64(args, "threshold"); ok {
		t := int(v)
		threshold = &t
	}

	summary, err := s.reports.LowStock(ctx, threshold)
	if err != nil {
		return nil, domainError(err)
	}

	items := make([]map[string]interface{}, 0, len(summary.Items))
	for _, item := range summary.Items {
		items = append(items, map[string]interface{}{
			"product_id":      item.ProductID,
			"name":            item.Name,
			"category":        item.Category,
			"stock":           item.Stock,
			"stock_minimum":   item.StockMinimum,
			"price":           item.Price.StringFixed(2),
			"inventory_value": item.InventoryValue.StringFixed(2),
			"state":           string(item.State),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"products":    items,
		"count":       len(items),
		"total_value": summary.TotalValue.StringFixed(2),
	})), nil
}

// handleDashboard handles the dashboard tool invocation
func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if _, err := s.requireActor(ctx, args, auth.CapViewReports); err != nil {
		return nil, err
	}

	dash, err := s.reports.Dashboard(ctx)
	if err != nil {
		return nil, domainError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"sales_today":     dash.SalesToday,
		"amount_today":    dash.AmountToday.StringFixed(2),
		"active_products": dash.ActiveProducts,
		"low_stock_count": dash.LowStockCount,
		"generated_at":    dash.GeneratedAt.Format(time.RFC3339),
	})), nil
}
