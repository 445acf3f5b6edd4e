package interfaces

import (
	"context"

	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IBrokerClient defines the authenticated read and order calls of the broker.
// -----------------------------------------------------------------------------

type IBrokerClient interface {
	GetAccount(ctx context.Context) (*models.MAccountSummary, error)

	GetHoldings(ctx context.Context) ([]models.MHoldingRow, error)

	GetOpenOrders(ctx context.Context) ([]models.MOrderRecord, error)

	// GetFills returns executions inside the inclusive date range.
	GetFills(ctx context.Context, dateRange models.MDateRange) ([]models.MFill, error)

	GetQuote(ctx context.Context, symbolCode string) (*models.MQuote, error)

	// PlaceOrder validates the request before any network call.
	PlaceOrder(ctx context.Context, req models.MOrderRequest) (*models.MOrderRecord, error)

	CancelOrder(ctx context.Context, req models.MCancelRequest) (*models.MOrderRecord, error)

	// ModifyOrder returns the record under the new order number.
	ModifyOrder(ctx context.Context, req models.MModifyRequest) (*models.MOrderRecord, error)

	GetDeposit(ctx context.Context) (*models.MDeposit, error)

	GetEstimatedAssets(ctx context.Context) (*models.MEstimatedAssets, error)

	// GetTradingDiary takes a YYYYMMDD date; "" means today.
	GetTradingDiary(ctx context.Context, date string) (*models.MTradingDiary, error)

	GetChart(ctx context.Context, symbolCode string, period models.ChartPeriod, days int) (*models.MChart, error)
}

// -----------------------------------------------------------------------------
// IAuthenticator defines the OAuth endpoints of the broker.
// -----------------------------------------------------------------------------

type IAuthenticator interface {
	IssueToken(ctx context.Context) (*models.MToken, error)

	RevokeToken(ctx context.Context, token string) error

	// CheckServer probes the broker domain before a login.
	CheckServer(ctx context.Context) error

	ServerInfo() models.MServerInfo
}

// -----------------------------------------------------------------------------
// IResponseCache is the cache of read-only broker lookups.
// -----------------------------------------------------------------------------

type IResponseCache interface {
	// Clear drops every entry and returns how many were removed.
	Clear() (int, error)
}
