package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType only has the cash variant; credit orders are not supported.
type OrderType string

const (
	OrderTypeCash OrderType = "cash"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusCancelled       OrderStatus = "cancelled"
)

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

type MOrderRequest struct {
	SymbolCode string          `json:"symbol_code"`
	Side       OrderSide       `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	OrderType  OrderType       `json:"order_type"`
}

// MCancelRequest cancels Quantity shares of OrderID; 0 cancels the remainder.
type MCancelRequest struct {
	OrderID    string `json:"order_id"`
	SymbolCode string `json:"symbol_code"`
	Quantity   int64  `json:"quantity"`
}

// MModifyRequest replaces the quantity and price of a resting order. Side is
// optional and only labels the journalled replacement.
type MModifyRequest struct {
	OrderID    string          `json:"order_id"`
	SymbolCode string          `json:"symbol_code"`
	Side       OrderSide       `json:"side,omitempty"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

type MOrderRecord struct {
	OrderID        string          `json:"order_id"`
	SymbolCode     string          `json:"symbol_code"`
	SymbolName     string          `json:"symbol_name,omitempty"`
	Side           OrderSide       `json:"side"`
	Quantity       int64           `json:"quantity"`
	FilledQuantity int64           `json:"filled_quantity"`
	Price          decimal.Decimal `json:"price"`
	Status         OrderStatus     `json:"status"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}

// MJournalEntry is an order record as kept in the local journal.
type MJournalEntry struct {
	ID         string       `json:"id"`
	ServerType ServerType   `json:"server_type"`
	OrderDate  string       `json:"order_date"`
	Order      MOrderRecord `json:"order"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// MOrderKey identifies a journalled order. Kiwoom restarts order numbers every
// trading day and the mock and real servers number independently.
type MOrderKey struct {
	ServerType ServerType
	OrderDate  string
	OrderID    string
}

// -----------------------------------------------------------------------------

var seoul = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}()

// OrderDate is the exchange-local trading date of t, formatted YYYYMMDD.
func OrderDate(t time.Time) string {
	return t.In(seoul).Format("20060102")
}
