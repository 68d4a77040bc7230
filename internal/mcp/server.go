package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/retailops/backoffice/internal/auth"
	"github.com/retailops/backoffice/internal/catalog"
	"github.com/retailops/backoffice/internal/ledger"
	"github.com/retailops/backoffice/internal/order"
	"github.com/retailops/backoffice/internal/report"
	"github.com/retailops/backoffice/internal/sequence"
	"github.com/retailops/backoffice/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "backoffice-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.backoffice"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	processor *order.Processor
	catalog   *catalog.Catalog
	reports   *report.Aggregator
	auth      *auth.Service
	log       *zap.Logger
}

// NewServer creates a new MCP server instance backed by the database at
// dbPath. An empty path falls back to ~/.backoffice/backoffice.db.
func NewServer(dbPath string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".backoffice")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dir, "backoffice.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ldg := ledger.New(store, logger)
	processor := order.New(store, ldg, sequence.New(), logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		storage:   store,
		processor: processor,
		catalog:   catalog.New(store, ldg, logger),
		reports:   report.New(store, logger),
		auth:      auth.NewService(store, logger),
		log:       logger,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(createSaleTool(), s.handleCreateSale)
	s.mcp.AddTool(cancelSaleTool(), s.handleCancelSale)
	s.mcp.AddTool(getSaleTool(), s.handleGetSale)
	s.mcp.AddTool(listSalesTool(), s.handleListSales)

	s.mcp.AddTool(adjustStockTool(), s.handleAdjustStock)
	s.mcp.AddTool(listProductsTool(), s.handleListProducts)
	s.mcp.AddTool(upsertProductTool(), s.handleUpsertProduct)

	s.mcp.AddTool(salesReportTool(), s.handleSalesReport)
	s.mcp.AddTool(topProductsTool(), s.handleTopProducts)
	s.mcp.AddTool(sellerRankingTool(), s.handleSellerRanking)
	s.mcp.AddTool(lowStockTool(), s.handleLowStock)
	s.mcp.AddTool(dashboardTool(), s.handleDashboard)
}
