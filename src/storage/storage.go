package storage

import (
	"database/sql"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// NewOrderStore builds and initializes the journal selected in the config.
// The "none" type returns a nil store.
func NewOrderStore(cfg *models.MStorageConfig, log *logger.Logger) (interfaces.IOrderStore, error) {
	var store interfaces.IOrderStore
	switch cfg.DBType {
	case "sqlite":
		store = NewSQLiteJournal(cfg.DBPath, log)
	case "postgres":
		pg, err := NewPostgresJournal(cfg.DBConnectionString, log)
		if err != nil {
			return nil, err
		}
		store = pg
	case "none", "":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown database type '%s'", cfg.DBType)
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

func scanEntries(rows *sql.Rows) ([]models.MJournalEntry, error) {
	entries := make([]models.MJournalEntry, 0)
	for rows.Next() {
		var (
			e                  models.MJournalEntry
			serverType, side   string
			status, price      string
			name               sql.NullString
			submitted, updated int64
		)
		err := rows.Scan(&e.ID, &e.Order.OrderID, &serverType, &e.OrderDate, &e.Order.SymbolCode, &name, &side,
			&e.Order.Quantity, &e.Order.FilledQuantity, &price, &status, &submitted, &updated)
		if err != nil {
			return nil, helpers.NewDatabaseError("failed to scan order row", err)
		}

		e.ServerType = models.ServerType(serverType)
		e.Order.SymbolName = name.String
		e.Order.Side = models.OrderSide(side)
		e.Order.Status = models.OrderStatus(status)
		e.Order.Price, _ = decimal.NewFromString(price)
		e.Order.SubmittedAt = time.UnixMilli(submitted).UTC()
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("failed to read order rows", err)
	}
	return entries, nil
}
