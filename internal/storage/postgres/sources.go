package postgres

import (
	"context"
	"fmt"

	"cohort-retention/internal/domain"
	"cohort-retention/internal/storage"
)

// Default input tables.
const (
	DefaultCustomersTable = "customers"
	DefaultOrdersTable    = "orders"
)

// timestampFormat renders timestamps in the layout the cohort parser expects.
const timestampFormat = `'YYYY-MM-DD HH24:MI:SS'`

// CustomerSource streams customer records from a PostgreSQL table with
// columns (customer_id, created_at).
type CustomerSource struct {
	pool  *Pool
	table string
}

// NewCustomerSource creates a customer source over table (DefaultCustomersTable if empty).
func NewCustomerSource(pool *Pool, table string) (*CustomerSource, error) {
	if table == "" {
		table = DefaultCustomersTable
	}
	if err := storage.CheckTableName("customers", table); err != nil {
		return nil, err
	}
	return &CustomerSource{pool: pool, table: table}, nil
}

// Name identifies the source in logs and metrics.
func (s *CustomerSource) Name() string {
	return "postgres:" + s.table
}

// ReadCustomers calls fn for every row. NULL values arrive as empty strings.
func (s *CustomerSource) ReadCustomers(ctx context.Context, fn func(domain.CustomerRecord)) error {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(customer_id::text, ''),
			COALESCE(to_char(created_at, %s), '')
		FROM %s
	`, timestampFormat, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.CustomerRecord
		if err := rows.Scan(&rec.CustomerID, &rec.CreatedAt); err != nil {
			return fmt.Errorf("scan customer: %w", err)
		}
		fn(rec)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate customers: %w", err)
	}
	return nil
}

// OrderSource streams order records from a PostgreSQL table with columns
// (order_id, customer_id, created_at, order_sequence).
type OrderSource struct {
	pool  *Pool
	table string
}

// NewOrderSource creates an order source over table (DefaultOrdersTable if empty).
func NewOrderSource(pool *Pool, table string) (*OrderSource, error) {
	if table == "" {
		table = DefaultOrdersTable
	}
	if err := storage.CheckTableName("orders", table); err != nil {
		return nil, err
	}
	return &OrderSource{pool: pool, table: table}, nil
}

// Name identifies the source in logs and metrics.
func (s *OrderSource) Name() string {
	return "postgres:" + s.table
}

// ReadOrders calls fn for every row. NULL values arrive as empty strings.
func (s *OrderSource) ReadOrders(ctx context.Context, fn func(domain.OrderRecord)) error {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(order_id::text, ''),
			COALESCE(customer_id::text, ''),
			COALESCE(to_char(created_at, %s), ''),
			COALESCE(order_sequence::text, '')
		FROM %s
	`, timestampFormat, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.OrderRecord
		if err := rows.Scan(&rec.OrderID, &rec.CustomerID, &rec.CreatedAt, &rec.Sequence); err != nil {
			return fmt.Errorf("scan order: %w", err)
		}
		fn(rec)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate orders: %w", err)
	}
	return nil
}
