package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MQuote is the basic stock information snapshot for one symbol.
type MQuote struct {
	SymbolCode   string          `json:"symbol_code"`
	SymbolName   string          `json:"symbol_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Change       decimal.Decimal `json:"change"`
	ChangeRate   decimal.Decimal `json:"change_rate"`
	Volume       int64           `json:"volume"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// -----------------------------------------------------------------------------
// Charts
// -----------------------------------------------------------------------------

type ChartPeriod string

const (
	ChartDaily   ChartPeriod = "D"
	ChartWeekly  ChartPeriod = "W"
	ChartMonthly ChartPeriod = "M"
)

// MCandle is one bar; Date is the bar's first trading day as YYYYMMDD.
type MCandle struct {
	Date        string          `json:"date"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      int64           `json:"volume"`
	TradeAmount decimal.Decimal `json:"trade_amount"`
}

// MChart lists candles oldest first.
type MChart struct {
	SymbolCode string      `json:"symbol_code"`
	Period     ChartPeriod `json:"period"`
	Candles    []MCandle   `json:"candles"`
}
