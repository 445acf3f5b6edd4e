package interfaces

import (
	"context"

	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IPushRelay is the part of the relay the aggregator publishes through.
// -----------------------------------------------------------------------------

type IPushRelay interface {
	// Broadcast sends the view to every channel connected at this moment.
	Broadcast(ctx context.Context, view *models.MAccountView) error

	// PublishQuote sends the quote to channels subscribed to symbolCode.
	PublishQuote(ctx context.Context, symbolCode string, quote *models.MQuote) error

	// SubscribedSymbols lists every symbol with at least one subscriber.
	SubscribedSymbols(ctx context.Context) ([]string, error)
}

// -----------------------------------------------------------------------------
// IPresenceObserver is told the channel count after each connect/disconnect.
// Implementations must not block.
// -----------------------------------------------------------------------------

type IPresenceObserver interface {
	ChannelsChanged(count int)
}
