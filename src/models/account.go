package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MAccountSummary is the balance part of the account evaluation response.
type MAccountSummary struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	TotalAssets   decimal.Decimal `json:"total_assets"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ReturnRate    decimal.Decimal `json:"return_rate"`
}

// MHoldingRow is one position as reported by the broker.
type MHoldingRow struct {
	SymbolCode   string          `json:"symbol_code"`
	SymbolName   string          `json:"symbol_name"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLRate      decimal.Decimal `json:"pnl_rate"`
}

// MFill is an execution reported by the broker.
type MFill struct {
	OrderID           string          `json:"order_id"`
	SymbolCode        string          `json:"symbol_code"`
	SymbolName        string          `json:"symbol_name"`
	Side              OrderSide       `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	State             string          `json:"state"`
	FilledAt          string          `json:"filled_at"`
	TradeDate         string          `json:"trade_date,omitempty"`
	Commission        decimal.Decimal `json:"commission"`
	Tax               decimal.Decimal `json:"tax"`
}

// Amount is the executed value of the fill.
func (f MFill) Amount() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}

// -----------------------------------------------------------------------------
// AccountView (rebuilt wholly on every refresh)
// -----------------------------------------------------------------------------

type MAccountView struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	TotalAssets   decimal.Decimal `json:"total_assets"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ReturnRate    decimal.Decimal `json:"return_rate"`
	Holdings      []MHoldingRow   `json:"holdings"`
	OpenOrders    []MOrderRecord  `json:"open_orders"`
	Fills         []MFill         `json:"fills"`
	MarketOpen    bool            `json:"market_open"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
}

// MDateRange bounds a fills query, both ends inclusive, formatted YYYYMMDD.
type MDateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// -----------------------------------------------------------------------------
// Deposit and assets
// -----------------------------------------------------------------------------

// MDeposit is the cash position from the deposit detail query.
type MDeposit struct {
	Deposit            decimal.Decimal `json:"deposit"`
	MarginCash         decimal.Decimal `json:"margin_cash"`
	D1Deposit          decimal.Decimal `json:"d1_deposit"`
	D2Deposit          decimal.Decimal `json:"d2_deposit"`
	WithdrawableAmount decimal.Decimal `json:"withdrawable_amount"`
	OrderableAmount    decimal.Decimal `json:"orderable_amount"`
	UnsettledAmount    decimal.Decimal `json:"unsettled_amount"`
}

type MEstimatedAssets struct {
	EstimatedAssets decimal.Decimal `json:"estimated_assets"`
}

// -----------------------------------------------------------------------------
// Trading diary and summaries
// -----------------------------------------------------------------------------

// MDiaryRow is one symbol's round trip for the day.
type MDiaryRow struct {
	SymbolCode       string          `json:"symbol_code"`
	SymbolName       string          `json:"symbol_name"`
	BuyAveragePrice  decimal.Decimal `json:"buy_average_price"`
	BuyQuantity      int64           `json:"buy_quantity"`
	BuyAmount        decimal.Decimal `json:"buy_amount"`
	SellAveragePrice decimal.Decimal `json:"sell_average_price"`
	SellQuantity     int64           `json:"sell_quantity"`
	SellAmount       decimal.Decimal `json:"sell_amount"`
	CommissionTax    decimal.Decimal `json:"commission_tax"`
	Profit           decimal.Decimal `json:"profit"`
	ProfitRate       decimal.Decimal `json:"profit_rate"`
}

type MTradingDiary struct {
	Date          string          `json:"date"`
	BuyAmount     decimal.Decimal `json:"buy_amount"`
	SellAmount    decimal.Decimal `json:"sell_amount"`
	CommissionTax decimal.Decimal `json:"commission_tax"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitRate    decimal.Decimal `json:"profit_rate"`
	Rows          []MDiaryRow     `json:"rows"`
}

// MTradingSummary totals the fills of one day (YYYYMMDD) or month (YYYYMM).
type MTradingSummary struct {
	Period       string          `json:"period"`
	TradeCount   int             `json:"trade_count"`
	BuyAmount    decimal.Decimal `json:"buy_amount"`
	SellAmount   decimal.Decimal `json:"sell_amount"`
	Commission   decimal.Decimal `json:"commission"`
	Tax          decimal.Decimal `json:"tax"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
	ReturnRate   decimal.Decimal `json:"return_rate"`
}

// MDailyTrading is the detail of a single trading day.
type MDailyTrading struct {
	Date    string          `json:"date"`
	Summary MTradingSummary `json:"summary"`
	Fills   []MFill         `json:"fills"`
}
