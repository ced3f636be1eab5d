package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/port"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		item_id    INT PRIMARY KEY,
		stock      INT NOT NULL,
		version    INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id    INT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		image VARCHAR(1024) NOT NULL DEFAULT ''
	)`,
}

// MySQLAdapter serves stock from the inventory table and product records
// from the products table.
type MySQLAdapter struct {
	db *sql.DB
}

// MySQLDSN normalizes dsn for the adapter: inventory timestamps are scanned
// into time.Time, which needs parseTime.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, productID int) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, stock, version, created_at, updated_at
		FROM inventory WHERE item_id = ?`, productID,
	).Scan(&inv.ProductID, &inv.Quantity, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	return &inv, nil
}

func (m *MySQLAdapter) Stock(ctx context.Context, productID int) (domain.Stock, error) {
	inv, err := m.GetInventory(ctx, productID)
	if err != nil {
		return domain.Stock{}, err
	}
	if inv == nil {
		return domain.Stock{}, port.ErrNotFound
	}
	return inv.Stock(), nil
}

func (m *MySQLAdapter) SetStock(ctx context.Context, productID int, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (item_id, stock, version) VALUES (?, ?, 0)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = version + 1, updated_at = NOW()`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Product(ctx context.Context, productID int) (domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, price, image
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Image)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product: %w", err)
	}

	return p, nil
}

func (m *MySQLAdapter) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, title, price, image) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE title = VALUES(title), price = VALUES(price), image = VALUES(image)`,
		p.ID, p.Title, p.Price, p.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
