package interfaces

import "kiwoom-dashboard/src/models"

// -----------------------------------------------------------------------------
// IOrderStore defines the contract for the local order journal.
// -----------------------------------------------------------------------------

type IOrderStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveOrder records a newly accepted order.
	SaveOrder(serverType models.ServerType, order models.MOrderRecord) error

	// -----------------------------------------------------------------------------

	// UpdateStatus applies a broker-observed status to a journalled order.
	// Unknown keys are ignored.
	UpdateStatus(key models.MOrderKey, status models.OrderStatus, filledQuantity int64) error

	// -----------------------------------------------------------------------------

	// ListOrders returns the most recent entries first.
	ListOrders(serverType models.ServerType, limit int) ([]models.MJournalEntry, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
