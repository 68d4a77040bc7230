package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/backoffice/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrStockGuard is returned when a stock decrement would go below zero
	ErrStockGuard = errors.New("stock would go negative")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if DriverName == "sqlite" && !strings.Contains(dsn, "_time_format") {
		// modernc.org/sqlite binds time.Time as Go's String() output by
		// default, which SQLite's date functions cannot parse; force the
		// SQLite text format so both drivers store comparable timestamps.
		if strings.Contains(dsn, "?") {
			dsn += "&_time_format=sqlite"
		} else {
			dsn += "?_time_format=sqlite"
		}
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Money is stored as integer cents; decimal.Decimal everywhere else.

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// Product operations

const productColumns = `id, name, description, category, sku, price_cents, stock,
       stock_minimum, image_url, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*types.Product, error) {
	var p types.Product
	var description, category, imageURL sql.NullString
	var priceCents int64
	err := row.Scan(
		&p.ID, &p.Name, &description, &category, &p.SKU, &priceCents,
		&p.Stock, &p.StockMinimum, &imageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Category = category.String
	p.ImageURL = imageURL.String
	p.Price = centsToDecimal(priceCents)
	return &p, nil
}

// createProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		INSERT INTO products (name, description, category, sku, price_cents, stock, stock_minimum, image_url, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.Category, product.SKU,
		decimalToCents(product.Price), product.Stock, product.StockMinimum,
		product.ImageURL, product.Active, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *types.Product) error {
	return s.createProductWithQuerier(ctx, s.querier(), product)
}

// getProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getProductWithQuerier(ctx context.Context, q querier, productID int64) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	product, err := scanProduct(q.QueryRowContext(ctx, query, productID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *SQLiteStorage) GetProduct(ctx context.Context, productID int64) (*types.Product, error) {
	return s.getProductWithQuerier(ctx, s.querier(), productID)
}

// getProductBySKUWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getProductBySKUWithQuerier(ctx context.Context, q querier, sku string) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = ?`
	product, err := scanProduct(q.QueryRowContext(ctx, query, sku))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *SQLiteStorage) GetProductBySKU(ctx context.Context, sku string) (*types.Product, error) {
	return s.getProductBySKUWithQuerier(ctx, s.querier(), sku)
}

// updateProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		UPDATE products
		SET name = ?, description = ?, category = ?, price_cents = ?,
		    stock_minimum = ?, image_url = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.Category,
		decimalToCents(product.Price), product.StockMinimum,
		product.ImageURL, product.Active, now, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProduct(ctx context.Context, product *types.Product) error {
	return s.updateProductWithQuerier(ctx, s.querier(), product)
}

// setProductActiveWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) setProductActiveWithQuerier(ctx context.Context, q querier, productID int64, active bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to set product active flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) SetProductActive(ctx context.Context, productID int64, active bool) error {
	return s.setProductActiveWithQuerier(ctx, s.querier(), productID, active)
}

// listProductsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listProductsWithQuerier(ctx context.Context, q querier, filter ProductFilter) ([]*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}

	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR description LIKE ? OR sku LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query += ` ORDER BY name`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make([]*types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *SQLiteStorage) ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error) {
	return s.listProductsWithQuerier(ctx, s.querier(), filter)
}

// adjustStockWithQuerier is the internal implementation that uses a querier.
// The WHERE guard makes the decrement atomic: the row is only touched when
// the resulting stock stays non-negative.
func (s *SQLiteStorage) adjustStockWithQuerier(ctx context.Context, q querier, productID int64, delta int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ? AND stock + ? >= 0`,
		delta, time.Now(), productID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing product from a guarded decrement
		if _, err := s.getProductWithQuerier(ctx, q, productID); err != nil {
			return err
		}
		return ErrStockGuard
	}
	return nil
}

func (s *SQLiteStorage) AdjustStock(ctx context.Context, productID int64, delta int) error {
	return s.adjustStockWithQuerier(ctx, s.querier(), productID, delta)
}

// Sale operations

// createSaleWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createSaleWithQuerier(ctx context.Context, q querier, sale *types.Sale) error {
	query := `
		INSERT INTO sales (customer_name, customer_email, customer_phone, total_cents, status, invoice_number, seller_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	result, err := q.ExecContext(ctx, query,
		sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone,
		decimalToCents(sale.Total), string(sale.Status), sale.InvoiceNumber,
		sale.SellerID, createdAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sale.ID = id
	sale.CreatedAt = createdAt
	sale.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateSale(ctx context.Context, sale *types.Sale) error {
	return s.createSaleWithQuerier(ctx, s.querier(), sale)
}

// insertSaleLinesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertSaleLinesWithQuerier(ctx context.Context, q querier, saleID int64, lines []types.SaleLine) error {
	query := `
		INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price_cents, subtotal_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for i := range lines {
		line := &lines[i]
		result, err := q.ExecContext(ctx, query,
			saleID, line.ProductID, line.Quantity,
			decimalToCents(line.UnitPrice), decimalToCents(line.Subtotal), now)
		if err != nil {
			return fmt.Errorf("failed to insert sale line: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		line.ID = id
		line.SaleID = saleID
		line.CreatedAt = now
	}
	return nil
}

func (s *SQLiteStorage) InsertSaleLines(ctx context.Context, saleID int64, lines []types.SaleLine) error {
	return s.insertSaleLinesWithQuerier(ctx, s.querier(), saleID, lines)
}

func scanSale(row interface{ Scan(...interface{}) error }) (*types.Sale, error) {
	var sale types.Sale
	var email, phone sql.NullString
	var totalCents int64
	var status string
	err := row.Scan(
		&sale.ID, &sale.CustomerName, &email, &phone, &totalCents,
		&status, &sale.InvoiceNumber, &sale.SellerID, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sale.CustomerEmail = email.String
	sale.CustomerPhone = phone.String
	sale.Total = centsToDecimal(totalCents)
	sale.Status = types.SaleStatus(status)
	return &sale, nil
}

const saleColumns = `id, customer_name, customer_email, customer_phone, total_cents,
       status, invoice_number, seller_id, created_at, updated_at`

// getSaleWithQuerier loads a sale and its lines
func (s *SQLiteStorage) getSaleWithQuerier(ctx context.Context, q querier, saleID int64) (*types.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = ?`
	sale, err := scanSale(q.QueryRowContext(ctx, query, saleID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	lines, err := s.listSaleLinesWithQuerier(ctx, q, saleID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	return sale, nil
}

func (s *SQLiteStorage) GetSale(ctx context.Context, saleID int64) (*types.Sale, error) {
	return s.getSaleWithQuerier(ctx, s.querier(), saleID)
}

// listSaleLinesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSaleLinesWithQuerier(ctx context.Context, q querier, saleID int64) ([]types.SaleLine, error) {
	query := `
		SELECT id, sale_id, product_id, quantity, unit_price_cents, subtotal_cents, created_at
		FROM sale_lines
		WHERE sale_id = ?
		ORDER BY product_id
	`
	rows, err := q.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lines := make([]types.SaleLine, 0)
	for rows.Next() {
		var line types.SaleLine
		var unitCents, subtotalCents int64
		err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.Quantity,
			&unitCents, &subtotalCents, &line.CreatedAt)
		if err != nil {
			return nil, err
		}
		line.UnitPrice = centsToDecimal(unitCents)
		line.Subtotal = centsToDecimal(subtotalCents)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// saleOrderColumns whitelists caller-supplied sort columns
var saleOrderColumns = map[string]string{
	"created_at":    "created_at",
	"total":         "total_cents",
	"customer_name": "customer_name",
	"status":        "status",
}

// saleFilterClause builds the WHERE conditions shared by the sales listing
// and its statistics, so both always describe the same set of rows
func saleFilterClause(filter types.SaleFilter) (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := []interface{}{}

	if filter.From != nil {
		clause += ` AND created_at >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		clause += ` AND created_at < ?`
		args = append(args, *filter.To)
	}
	if filter.Customer != "" {
		clause += ` AND customer_name LIKE ?`
		args = append(args, "%"+filter.Customer+"%")
	}
	if filter.Status != "" {
		clause += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SellerID != nil {
		clause += ` AND seller_id = ?`
		args = append(args, *filter.SellerID)
	}
	return clause, args
}

// listSalesWithQuerier is the internal implementation that uses a querier.
// Lines are not loaded; use GetSale for a full sale.
func (s *SQLiteStorage) listSalesWithQuerier(ctx context.Context, q querier, filter types.SaleFilter) ([]*types.Sale, error) {
	clause, args := saleFilterClause(filter)
	query := `SELECT ` + saleColumns + ` FROM sales` + clause

	column, ok := saleOrderColumns[filter.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", column, direction)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sales := make([]*types.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *SQLiteStorage) ListSales(ctx context.Context, filter types.SaleFilter) ([]*types.Sale, error) {
	return s.listSalesWithQuerier(ctx, s.querier(), filter)
}

// saleStatsWithQuerier aggregates over the same conditions as the listing,
// without paging, so the statistics match the filtered set exactly
func (s *SQLiteStorage) saleStatsWithQuerier(ctx context.Context, q querier, filter types.SaleFilter) (types.PeriodTotals, error) {
	clause, args := saleFilterClause(filter)
	query := `SELECT COUNT(*), COALESCE(SUM(total_cents), 0) FROM sales` + clause

	var totals types.PeriodTotals
	var amountCents int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&totals.Count, &amountCents); err != nil {
		return types.PeriodTotals{}, fmt.Errorf("failed to compute sale stats: %w", err)
	}
	totals.Amount = centsToDecimal(amountCents)
	if totals.Count > 0 {
		totals.Average = totals.Amount.DivRound(decimal.NewFromInt(int64(totals.Count)), 2)
	} else {
		totals.Average = decimal.Zero
	}
	return totals, nil
}

func (s *SQLiteStorage) SaleStats(ctx context.Context, filter types.SaleFilter) (types.PeriodTotals, error) {
	return s.saleStatsWithQuerier(ctx, s.querier(), filter)
}

// updateSaleStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateSaleStatusWithQuerier(ctx context.Context, q querier, saleID int64, status types.SaleStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sales SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), saleID)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) UpdateSaleStatus(ctx context.Context, saleID int64, status types.SaleStatus) error {
	return s.updateSaleStatusWithQuerier(ctx, s.querier(), saleID, status)
}

// Invoice counter operations

// nextInvoiceSeqWithQuerier atomically bumps the per-year counter. The
// upsert-and-return form means two concurrent commits can never observe the
// same value, unlike a count-rows-plus-one derivation.
func (s *SQLiteStorage) nextInvoiceSeqWithQuerier(ctx context.Context, q querier, year int) (int64, error) {
	query := `
		INSERT INTO invoice_counters (year, next_seq) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET next_seq = next_seq + 1
		RETURNING next_seq
	`
	var seq int64
	if err := q.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return seq, nil
}

func (s *SQLiteStorage) NextInvoiceSeq(ctx context.Context, year int) (int64, error) {
	return s.nextInvoiceSeqWithQuerier(ctx, s.querier(), year)
}

// Stock movement operations

// insertStockMovementWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertStockMovementWithQuerier(ctx context.Context, q querier, movement *types.StockMovement) error {
	query := `
		INSERT INTO stock_movements (product_id, delta, reason, sale_id, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	var saleID interface{}
	if movement.SaleID != nil {
		saleID = *movement.SaleID
	}
	result, err := q.ExecContext(ctx, query,
		movement.ProductID, movement.Delta, string(movement.Reason), saleID, movement.ActorID, now)
	if err != nil {
		return fmt.Errorf("failed to insert stock movement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	movement.ID = id
	movement.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertStockMovement(ctx context.Context, movement *types.StockMovement) error {
	return s.insertStockMovementWithQuerier(ctx, s.querier(), movement)
}

// listStockMovementsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listStockMovementsWithQuerier(ctx context.Context, q querier, productID int64, limit int) ([]*types.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, product_id, delta, reason, sale_id, actor_id, created_at
		FROM stock_movements
		WHERE product_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	movements := make([]*types.StockMovement, 0)
	for rows.Next() {
		var m types.StockMovement
		var reason string
		var saleID sql.NullInt64
		err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &reason, &saleID, &m.ActorID, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		m.Reason = types.MovementReason(reason)
		if saleID.Valid {
			m.SaleID = &saleID.Int64
		}
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

func (s *SQLiteStorage) ListStockMovements(ctx context.Context, productID int64, limit int) ([]*types.StockMovement, error) {
	return s.listStockMovementsWithQuerier(ctx, s.querier(), productID, limit)
}

// User operations

// createUserWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createUserWithQuerier(ctx context.Context, q querier, user *types.User) error {
	query := `
		INSERT INTO users (username, name, email, password_hash, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		user.Username, user.Name, user.Email, user.PasswordHash,
		string(user.Role), user.Active, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *types.User) error {
	return s.createUserWithQuerier(ctx, s.querier(), user)
}

func scanUser(row interface{ Scan(...interface{}) error }) (*types.User, error) {
	var user types.User
	var email sql.NullString
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.Name, &email,
		&user.PasswordHash, &role, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	user.Role = types.Role(role)
	return &user, nil
}

const userColumns = `id, username, name, email, password_hash, role, active, created_at, updated_at`

// getUserWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getUserWithQuerier(ctx context.Context, q querier, userID int64) (*types.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	return s.getUserWithQuerier(ctx, s.querier(), userID)
}

// getUserByUsernameWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getUserByUsernameWithQuerier(ctx context.Context, q querier, username string) (*types.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.getUserByUsernameWithQuerier(ctx, s.querier(), username)
}

// Reporting queries

// periodTotalsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) periodTotalsWithQuerier(ctx context.Context, q querier, from, toExcl time.Time) (types.PeriodTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= ? AND created_at < ?
	`
	var totals types.PeriodTotals
	var amountCents int64
	if err := q.QueryRowContext(ctx, query, from, toExcl).Scan(&totals.Count, &amountCents); err != nil {
		return types.PeriodTotals{}, fmt.Errorf("failed to compute period totals: %w", err)
	}
	totals.Amount = centsToDecimal(amountCents)
	if totals.Count > 0 {
		totals.Average = totals.Amount.DivRound(decimal.NewFromInt(int64(totals.Count)), 2)
	} else {
		totals.Average = decimal.Zero
	}
	return totals, nil
}

func (s *SQLiteStorage) PeriodTotals(ctx context.Context, from, toExcl time.Time) (types.PeriodTotals, error) {
	return s.periodTotalsWithQuerier(ctx, s.querier(), from, toExcl)
}

// bucketFormats maps a bucket granularity to its strftime label format
var bucketFormats = map[types.Bucket]string{
	types.BucketDay:   "%Y-%m-%d",
	types.BucketWeek:  "%Y-W%W",
	types.BucketMonth: "%Y-%m",
}

// salesSeriesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) salesSeriesWithQuerier(ctx context.Context, q querier, from, toExcl time.Time, bucket types.Bucket) ([]types.SeriesPoint, error) {
	format, ok := bucketFormats[bucket]
	if !ok {
		format = bucketFormats[types.BucketDay]
	}
	query := `
		SELECT strftime(?, created_at) AS bucket, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = 'completed' AND created_at >= ? AND created_at < ?
		GROUP BY bucket
		ORDER BY bucket
	`
	rows, err := q.QueryContext(ctx, query, format, from, toExcl)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales series: %w", err)
	}
	defer func() { _ = rows.Close() }()

	points := make([]types.SeriesPoint, 0)
	for rows.Next() {
		var point types.SeriesPoint
		var amountCents int64
		if err := rows.Scan(&point.Period, &point.Count, &amountCents); err != nil {
			return nil, err
		}
		point.Amount = centsToDecimal(amountCents)
		points = append(points, point)
	}
	return points, rows.Err()
}

func (s *SQLiteStorage) SalesSeries(ctx context.Context, from, toExcl time.Time, bucket types.Bucket) ([]types.SeriesPoint, error) {
	return s.salesSeriesWithQuerier(ctx, s.querier(), from, toExcl, bucket)
}

// topProductsWithQuerier ranks products by revenue descending, then by units
// sold descending. Percentages are left zero; the aggregator fills them in.
func (s *SQLiteStorage) topProductsWithQuerier(ctx context.Context, q querier, from, toExcl time.Time, limit int) ([]types.ProductRank, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT l.product_id, p.name,
		       SUM(l.quantity) AS units,
		       COUNT(DISTINCT l.sale_id) AS times_sold,
		       SUM(l.subtotal_cents) AS revenue_cents,
		       AVG(l.unit_price_cents) AS avg_price_cents
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id
		JOIN products p ON p.id = l.product_id
		WHERE s.status = 'completed' AND s.created_at >= ? AND s.created_at < ?
		GROUP BY l.product_id, p.name
		ORDER BY revenue_cents DESC, units DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, from, toExcl, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ranks := make([]types.ProductRank, 0)
	for rows.Next() {
		var rank types.ProductRank
		var revenueCents int64
		var avgPriceCents float64
		err := rows.Scan(&rank.ProductID, &rank.Name, &rank.UnitsSold,
			&rank.TimesSold, &revenueCents, &avgPriceCents)
		if err != nil {
			return nil, err
		}
		rank.Revenue = centsToDecimal(revenueCents)
		rank.AvgUnitPrice = decimal.NewFromFloat(avgPriceCents / 100).Round(2)
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (s *SQLiteStorage) TopProducts(ctx context.Context, from, toExcl time.Time, limit int) ([]types.ProductRank, error) {
	return s.topProductsWithQuerier(ctx, s.querier(), from, toExcl, limit)
}

// sellerTotalsWithQuerier ranks sellers by revenue descending, then by sale
// count descending
func (s *SQLiteStorage) sellerTotalsWithQuerier(ctx context.Context, q querier, from, toExcl time.Time, limit int) ([]types.SellerRank, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT s.seller_id, u.name,
		       COUNT(*) AS sale_count,
		       COALESCE(SUM(s.total_cents), 0) AS revenue_cents
		FROM sales s
		JOIN users u ON u.id = s.seller_id
		WHERE s.status = 'completed' AND s.created_at >= ? AND s.created_at < ?
		GROUP BY s.seller_id, u.name
		ORDER BY revenue_cents DESC, sale_count DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, from, toExcl, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute seller totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ranks := make([]types.SellerRank, 0)
	for rows.Next() {
		var rank types.SellerRank
		var revenueCents int64
		if err := rows.Scan(&rank.SellerID, &rank.SellerName, &rank.SaleCount, &revenueCents); err != nil {
			return nil, err
		}
		rank.Revenue = centsToDecimal(revenueCents)
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (s *SQLiteStorage) SellerTotals(ctx context.Context, from, toExcl time.Time, limit int) ([]types.SellerRank, error) {
	return s.sellerTotalsWithQuerier(ctx, s.querier(), from, toExcl, limit)
}

// salesByCategoryWithQuerier breaks revenue down by product category,
// highest revenue first. Products without a category land in "uncategorized".
func (s *SQLiteStorage) salesByCategoryWithQuerier(ctx context.Context, q querier, from, toExcl time.Time) ([]types.CategoryRank, error) {
	query := `
		SELECT COALESCE(NULLIF(p.category, ''), 'uncategorized') AS category,
		       SUM(l.quantity) AS units,
		       SUM(l.subtotal_cents) AS revenue_cents
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id
		JOIN products p ON p.id = l.product_id
		WHERE s.status = 'completed' AND s.created_at >= ? AND s.created_at < ?
		GROUP BY category
		ORDER BY revenue_cents DESC, units DESC
	`
	rows, err := q.QueryContext(ctx, query, from, toExcl)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ranks := make([]types.CategoryRank, 0)
	for rows.Next() {
		var rank types.CategoryRank
		var revenueCents int64
		if err := rows.Scan(&rank.Category, &rank.UnitsSold, &revenueCents); err != nil {
			return nil, err
		}
		rank.Revenue = centsToDecimal(revenueCents)
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (s *SQLiteStorage) SalesByCategory(ctx context.Context, from, toExcl time.Time) ([]types.CategoryRank, error) {
	return s.salesByCategoryWithQuerier(ctx, s.querier(), from, toExcl)
}

// lowStockProductsWithQuerier lists active products at or below the restock
// threshold, most depleted first
func (s *SQLiteStorage) lowStockProductsWithQuerier(ctx context.Context, q querier, threshold *int) ([]*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active = 1`
	args := []interface{}{}
	if threshold != nil {
		query += ` AND stock <= ?`
		args = append(args, *threshold)
	} else {
		query += ` AND stock <= stock_minimum`
	}
	query += ` ORDER BY stock ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := make([]*types.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *SQLiteStorage) LowStockProducts(ctx context.Context, threshold *int) ([]*types.Product, error) {
	return s.lowStockProductsWithQuerier(ctx, s.querier(), threshold)
}

func (s *SQLiteStorage) countWithQuerier(ctx context.Context, q querier, query string) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStorage) CountActiveProducts(ctx context.Context) (int, error) {
	return s.countWithQuerier(ctx, s.querier(), `SELECT COUNT(*) FROM products WHERE active = 1`)
}

func (s *SQLiteStorage) CountLowStock(ctx context.Context) (int, error) {
	return s.countWithQuerier(ctx, s.querier(), `SELECT COUNT(*) FROM products WHERE active = 1 AND stock <= stock_minimum`)
}

// Delegate operations to storage using the transaction querier

func (t *sqliteTx) CreateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.createProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) GetProduct(ctx context.Context, productID int64) (*types.Product, error) {
	return t.storage.getProductWithQuerier(ctx, t.querier(), productID)
}

func (t *sqliteTx) GetProductBySKU(ctx context.Context, sku string) (*types.Product, error) {
	return t.storage.getProductBySKUWithQuerier(ctx, t.querier(), sku)
}

func (t *sqliteTx) UpdateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.updateProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) SetProductActive(ctx context.Context, productID int64, active bool) error {
	return t.storage.setProductActiveWithQuerier(ctx, t.querier(), productID, active)
}

func (t *sqliteTx) ListProducts(ctx context.Context, filter ProductFilter) ([]*types.Product, error) {
	return t.storage.listProductsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) AdjustStock(ctx context.Context, productID int64, delta int) error {
	return t.storage.adjustStockWithQuerier(ctx, t.querier(), productID, delta)
}

func (t *sqliteTx) CreateSale(ctx context.Context, sale *types.Sale) error {
	return t.storage.createSaleWithQuerier(ctx, t.querier(), sale)
}

func (t *sqliteTx) InsertSaleLines(ctx context.Context, saleID int64, lines []types.SaleLine) error {
	return t.storage.insertSaleLinesWithQuerier(ctx, t.querier(), saleID, lines)
}

func (t *sqliteTx) GetSale(ctx context.Context, saleID int64) (*types.Sale, error) {
	return t.storage.getSaleWithQuerier(ctx, t.querier(), saleID)
}

func (t *sqliteTx) ListSales(ctx context.Context, filter types.SaleFilter) ([]*types.Sale, error) {
	return t.storage.listSalesWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) SaleStats(ctx context.Context, filter types.SaleFilter) (types.PeriodTotals, error) {
	return t.storage.saleStatsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) UpdateSaleStatus(ctx context.Context, saleID int64, status types.SaleStatus) error {
	return t.storage.updateSaleStatusWithQuerier(ctx, t.querier(), saleID, status)
}

func (t *sqliteTx) NextInvoiceSeq(ctx context.Context, year int) (int64, error) {
	return t.storage.nextInvoiceSeqWithQuerier(ctx, t.querier(), year)
}

func (t *sqliteTx) InsertStockMovement(ctx context.Context, movement *types.StockMovement) error {
	return t.storage.insertStockMovementWithQuerier(ctx, t.querier(), movement)
}

func (t *sqliteTx) ListStockMovements(ctx context.Context, productID int64, limit int) ([]*types.StockMovement, error) {
	return t.storage.listStockMovementsWithQuerier(ctx, t.querier(), productID, limit)
}

func (t *sqliteTx) CreateUser(ctx context.Context, user *types.User) error {
	return t.storage.createUserWithQuerier(ctx, t.querier(), user)
}

func (t *sqliteTx) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	return t.storage.getUserWithQuerier(ctx, t.querier(), userID)
}

func (t *sqliteTx) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return t.storage.getUserByUsernameWithQuerier(ctx, t.querier(), username)
}

func (t *sqliteTx) PeriodTotals(ctx context.Context, from, toExcl time.Time) (types.PeriodTotals, error) {
	return t.storage.periodTotalsWithQuerier(ctx, t.querier(), from, toExcl)
}

func (t *sqliteTx) SalesSeries(ctx context.Context, from, toExcl time.Time, bucket types.Bucket) ([]types.SeriesPoint, error) {
	return t.storage.salesSeriesWithQuerier(ctx, t.querier(), from, toExcl, bucket)
}

func (t *sqliteTx) TopProducts(ctx context.Context, from, toExcl time.Time, limit int) ([]types.ProductRank, error) {
	return t.storage.topProductsWithQuerier(ctx, t.querier(), from, toExcl, limit)
}

func (t *sqliteTx) SellerTotals(ctx context.Context, from, toExcl time.Time, limit int) ([]types.SellerRank, error) {
	return t.storage.sellerTotalsWithQuerier(ctx, t.querier(), from, toExcl, limit)
}

func (t *sqliteTx) SalesByCategory(ctx context.Context, from, toExcl time.Time) ([]types.CategoryRank, error) {
	return t.storage.salesByCategoryWithQuerier(ctx, t.querier(), from, toExcl)
}

func (t *sqliteTx) LowStockProducts(ctx context.Context, threshold *int) ([]*types.Product, error) {
	return t.storage.lowStockProductsWithQuerier(ctx, t.querier(), threshold)
}

func (t *sqliteTx) CountActiveProducts(ctx context.Context) (int, error) {
	return t.storage.countWithQuerier(ctx, t.querier(), `SELECT COUNT(*) FROM products WHERE active = 1`)
}

func (t *sqliteTx) CountLowStock(ctx context.Context) (int, error) {
	return t.storage.countWithQuerier(ctx, t.querier(), `SELECT COUNT(*) FROM products WHERE active = 1 AND stock <= stock_minimum`)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	// We return an error to prevent accidental misuse
	// If savepoints are needed in the future, implement here
	return nil, errors.New("nested transactions not supported")
}
