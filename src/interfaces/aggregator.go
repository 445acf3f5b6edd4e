package interfaces

import (
	"context"

	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IDashboard is the aggregator as seen by the HTTP facade.
// -----------------------------------------------------------------------------

type IDashboard interface {
	// Refresh builds a complete AccountView or fails as a whole.
	Refresh(ctx context.Context) (*models.MAccountView, error)

	// IsRunning reports whether the periodic task is active.
	IsRunning() bool

	// TradingSummaries totals fills per day, or per month when monthly is set.
	TradingSummaries(ctx context.Context, rng models.MDateRange, monthly bool) ([]models.MTradingSummary, error)

	DailyTrading(ctx context.Context, date string) (*models.MDailyTrading, error)
}
