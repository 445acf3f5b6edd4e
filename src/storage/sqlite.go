package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteJournal is the default order journal.
type SQLiteJournal struct {
	Path   string
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteJournal(path string, log *logger.Logger) *SQLiteJournal {
	return &SQLiteJournal{Path: path, Logger: log}
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Initialize() error {
	if dir := filepath.Dir(d.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create database directory '%s'", dir)
		}
	}

	db, err := sql.Open("sqlite", d.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open sqlite")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to ping sqlite")
	}
	// one writer keeps modernc sqlite free of SQLITE_BUSY
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS order_journal (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			server_type TEXT NOT NULL,
			order_date TEXT NOT NULL,
			symbol_code TEXT NOT NULL,
			symbol_name TEXT,
			side TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			filled_quantity INTEGER NOT NULL DEFAULT 0,
			price TEXT NOT NULL,
			status TEXT NOT NULL,
			submitted_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (server_type, order_date, order_id)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create orders table", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_order_journal_server_submitted ON order_journal (server_type, submitted_at DESC);`
	if _, err := d.DB.Exec(index); err != nil {
		return helpers.NewDatabaseError("failed to create orders index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SaveOrder inserts order or refreshes its progress. Finished orders are left
// untouched.
func (d *SQLiteJournal) SaveOrder(serverType models.ServerType, order models.MOrderRecord) error {
	now := time.Now().UTC()
	submitted := order.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}

	_, err := d.DB.Exec(`
		INSERT INTO order_journal (id, order_id, server_type, order_date, symbol_code, symbol_name, side, quantity, filled_quantity, price, status, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (server_type, order_date, order_id) DO UPDATE SET
			status = excluded.status,
			filled_quantity = excluded.filled_quantity,
			updated_at = excluded.updated_at
		WHERE order_journal.status NOT IN ('filled', 'cancelled')
	`, ulid.Make().String(), order.OrderID, string(serverType), models.OrderDate(submitted), order.SymbolCode, order.SymbolName,
		string(order.Side), order.Quantity, order.FilledQuantity, order.Price.String(), string(order.Status),
		submitted.UnixMilli(), now.UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("failed to save order "+order.OrderID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// UpdateStatus never moves an order out of filled or cancelled.
func (d *SQLiteJournal) UpdateStatus(key models.MOrderKey, status models.OrderStatus, filledQuantity int64) error {
	_, err := d.DB.Exec(`
		UPDATE order_journal SET status = ?, filled_quantity = MAX(filled_quantity, ?), updated_at = ?
		WHERE server_type = ? AND order_date = ? AND order_id = ? AND status NOT IN ('filled', 'cancelled')
	`, string(status), filledQuantity, time.Now().UTC().UnixMilli(), string(key.ServerType), key.OrderDate, key.OrderID)
	if err != nil {
		return helpers.NewDatabaseError("failed to update order "+key.OrderID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) ListOrders(serverType models.ServerType, limit int) ([]models.MJournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.Query(`
		SELECT id, order_id, server_type, order_date, symbol_code, symbol_name, side, quantity, filled_quantity, price, status, submitted_at, updated_at
		FROM order_journal WHERE server_type = ?
		ORDER BY submitted_at DESC, id DESC LIMIT ?
	`, string(serverType), limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to list orders", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteJournal) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
