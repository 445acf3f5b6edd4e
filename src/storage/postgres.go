package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------

// PostgresJournal keeps the order journal in a schema named after the binary.
type PostgresJournal struct {
	DSN    string
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresJournal(dsn string, log *logger.Logger) (*PostgresJournal, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get executable name")
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresJournal{DSN: dsn, Schema: name, Logger: log}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Initialize() error {
	db, err := sql.Open("postgres", d.DSN)
	if err != nil {
		return errors.Wrap(err, "failed to open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to ping postgres")
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("failed to create schema "+d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresJournal initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) table() string {
	return fmt.Sprintf(`"%s"."order_journal"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			server_type TEXT NOT NULL,
			order_date TEXT NOT NULL,
			symbol_code TEXT NOT NULL,
			symbol_name TEXT,
			side TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			filled_quantity BIGINT NOT NULL DEFAULT 0,
			price NUMERIC NOT NULL,
			status TEXT NOT NULL,
			submitted_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			UNIQUE (server_type, order_date, order_id)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create orders table", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) SaveOrder(serverType models.ServerType, order models.MOrderRecord) error {
	now := time.Now().UTC()
	submitted := order.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s AS o (id, order_id, server_type, order_date, symbol_code, symbol_name, side, quantity, filled_quantity, price, status, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (server_type, order_date, order_id) DO UPDATE SET
			status = EXCLUDED.status,
			filled_quantity = EXCLUDED.filled_quantity,
			updated_at = EXCLUDED.updated_at
		WHERE o.status NOT IN ('filled', 'cancelled')
	`, d.table())
	_, err := d.DB.Exec(query, ulid.Make().String(), order.OrderID, string(serverType), models.OrderDate(submitted), order.SymbolCode, order.SymbolName,
		string(order.Side), order.Quantity, order.FilledQuantity, order.Price.String(), string(order.Status),
		submitted.UnixMilli(), now.UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("failed to save order "+order.OrderID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) UpdateStatus(key models.MOrderKey, status models.OrderStatus, filledQuantity int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, filled_quantity = GREATEST(filled_quantity, $2), updated_at = $3
		WHERE server_type = $4 AND order_date = $5 AND order_id = $6 AND status NOT IN ('filled', 'cancelled')
	`, d.table())
	_, err := d.DB.Exec(query, string(status), filledQuantity, time.Now().UTC().UnixMilli(),
		string(key.ServerType), key.OrderDate, key.OrderID)
	if err != nil {
		return helpers.NewDatabaseError("failed to update order "+key.OrderID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) ListOrders(serverType models.ServerType, limit int) ([]models.MJournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT id, order_id, server_type, order_date, symbol_code, symbol_name, side, quantity, filled_quantity, price::text, status, submitted_at, updated_at
		FROM %s WHERE server_type = $1
		ORDER BY submitted_at DESC, id DESC LIMIT $2
	`, d.table())
	rows, err := d.DB.Query(query, string(serverType), limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to list orders", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresJournal) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
