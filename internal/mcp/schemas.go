package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// actorProperty is the actor_id parameter shared by every tool
func actorProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Id of the operator performing the call",
	}
}

func dateProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description + " (YYYY-MM-DD)",
	}
}

// createSaleTool returns the tool definition for create_sale
func createSaleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_sale",
		Description: "Register a sale: validates stock, assigns the invoice number, decrements inventory, and persists the sale atomically",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id":      actorProperty(),
				"customer_name": map[string]interface{}{"type": "string", "description": "Customer full name"},
				"customer_email": map[string]interface{}{
					"type":        "string",
					"description": "Optional customer email",
				},
				"customer_phone": map[string]interface{}{
					"type":        "string",
					"description": "Optional customer phone",
				},
				"lines": map[string]interface{}{
					"type":        "array",
					"description": "Sale lines; at least one",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"product_id": map[string]interface{}{"type": "integer"},
							"quantity": map[string]interface{}{
								"type":    "integer",
								"minimum": 1,
								"maximum": 1000,
							},
						},
						"required": []string{"product_id", "quantity"},
					},
				},
			},
			Required: []string{"actor_id", "customer_name", "lines"},
		},
	}
}

// cancelSaleTool returns the tool definition for cancel_sale
func cancelSaleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_sale",
		Description: "Cancel a completed sale, restoring the stock of every line exactly once",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"sale_id":  map[string]interface{}{"type": "integer", "description": "Id of the sale to cancel"},
			},
			Required: []string{"actor_id", "sale_id"},
		},
	}
}

// getSaleTool returns the tool definition for get_sale
func getSaleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_sale",
		Description: "Load a sale with its lines",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"sale_id":  map[string]interface{}{"type": "integer", "description": "Id of the sale"},
			},
			Required: []string{"actor_id", "sale_id"},
		},
	}
}

// listSalesTool returns the tool definition for list_sales
func listSalesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_sales",
		Description: "List sales with filters and the period statistics of the filtered window",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"from":     dateProperty("Start of the window, inclusive"),
				"to":       dateProperty("End of the window, inclusive"),
				"customer": map[string]interface{}{
					"type":        "string",
					"description": "Substring match on customer name",
				},
				"status": map[string]interface{}{
					"type": "string",
					"enum": []string{"pending", "completed", "cancelled"},
				},
				"seller_id": map[string]interface{}{"type": "integer"},
				"order_by": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"created_at", "total", "customer_name", "status"},
					"default": "created_at",
				},
				"desc":   map[string]interface{}{"type": "boolean", "default": false},
				"limit":  map[string]interface{}{"type": "integer", "default": 50},
				"offset": map[string]interface{}{"type": "integer", "default": 0},
			},
			Required: []string{"actor_id"},
		},
	}
}

// adjustStockTool returns the tool definition for adjust_stock
func adjustStockTool() mcp.Tool {
	return mcp.Tool{
		Name:        "adjust_stock",
		Description: "Apply a manual stock correction (restock or shrinkage), recording a movement with the acting operator",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id":   actorProperty(),
				"product_id": map[string]interface{}{"type": "integer"},
				"operation": map[string]interface{}{
					"type": "string",
					"enum": []string{"add", "subtract"},
				},
				"quantity": map[string]interface{}{"type": "integer", "minimum": 1},
			},
			Required: []string{"actor_id", "product_id", "operation", "quantity"},
		},
	}
}

// listProductsTool returns the tool definition for list_products
func listProductsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products with category, activity, and text search filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"category": map[string]interface{}{"type": "string"},
				"active_only": map[string]interface{}{
					"type":    "boolean",
					"default": true,
				},
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Substring match on name, description, or SKU",
				},
				"limit":  map[string]interface{}{"type": "integer", "default": 50},
				"offset": map[string]interface{}{"type": "integer", "default": 0},
			},
			Required: []string{"actor_id"},
		},
	}
}

// upsertProductTool returns the tool definition for upsert_product
func upsertProductTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upsert_product",
		Description: "Create a catalog product, or update one when product_id is given. Stock is only set on creation; use adjust_stock afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"product_id": map[string]interface{}{
					"type":        "integer",
					"description": "Present for updates, absent for creation",
				},
				"name":        map[string]interface{}{"type": "string"},
				"description": map[string]interface{}{"type": "string"},
				"category":    map[string]interface{}{"type": "string"},
				"sku": map[string]interface{}{
					"type":        "string",
					"description": "Unique product code; immutable after creation",
				},
				"price": map[string]interface{}{
					"type":        "string",
					"description": "Unit price as a decimal string, e.g. \"59.90\"",
				},
				"stock":         map[string]interface{}{"type": "integer", "minimum": 0},
				"stock_minimum": map[string]interface{}{"type": "integer", "minimum": 0},
				"image_url":     map[string]interface{}{"type": "string"},
				"active": map[string]interface{}{
					"type":        "boolean",
					"description": "On update, deactivates or restores the product",
				},
			},
			Required: []string{"actor_id", "name", "price"},
		},
	}
}

// salesReportTool returns the tool definition for sales_report
func salesReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sales_report",
		Description: "Consolidated sales report: totals, growth vs the preceding period, bucketed series, and top products",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"from":     dateProperty("Start of the period, inclusive"),
				"to":       dateProperty("End of the period, inclusive"),
				"bucket": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"day", "week", "month"},
					"default": "day",
				},
				"top_n": map[string]interface{}{"type": "integer", "default": 10},
			},
			Required: []string{"actor_id", "from", "to"},
		},
	}
}

// topProductsTool returns the tool definition for top_products
func topProductsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "top_products",
		Description: "Rank products by revenue within a period, with units, distinct sales, and revenue share",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"from":     dateProperty("Start of the period, inclusive"),
				"to":       dateProperty("End of the period, inclusive"),
				"limit":    map[string]interface{}{"type": "integer", "default": 10},
			},
			Required: []string{"actor_id", "from", "to"},
		},
	}
}

// sellerRankingTool returns the tool definition for seller_ranking
func sellerRankingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "seller_ranking",
		Description: "Rank sellers by revenue within a period, with sale counts and revenue share",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"from":     dateProperty("Start of the period, inclusive"),
				"to":       dateProperty("End of the period, inclusive"),
				"limit":    map[string]interface{}{"type": "integer", "default": 10},
			},
			Required: []string{"actor_id", "from", "to"},
		},
	}
}

// lowStockTool returns the tool definition for low_stock
func lowStockTool() mcp.Tool {
	return mcp.Tool{
		Name:        "low_stock",
		Description: "List active products at or below their restock threshold, most depleted first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
				"threshold": map[string]interface{}{
					"type":        "integer",
					"description": "Override each product's own minimum with a fixed threshold",
				},
			},
			Required: []string{"actor_id"},
		},
	}
}

// dashboardTool returns the tool definition for dashboard
func dashboardTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dashboard",
		Description: "Today's headline metrics: sale count and amount, active products, low-stock products",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"actor_id": actorProperty(),
			},
			Required: []string{"actor_id"},
		},
	}
}
