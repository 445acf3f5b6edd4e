package aggregator

import (
	"context"
	"sync/atomic"
	"time"

	"kiwoom-dashboard/src/broker/kiwoom"
	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
	"kiwoom-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// Aggregator
// -----------------------------------------------------------------------------

// Aggregator builds AccountViews and runs the periodic refresh while at least
// one channel is connected and the session is authenticated.
type Aggregator struct {
	Broker     interfaces.IBrokerClient
	Relay      interfaces.IPushRelay
	Store      interfaces.IOrderStore
	Clock      *utils.MarketClock
	Logger     *logger.Logger
	ServerType models.ServerType

	interval        time.Duration
	pauseWhenClosed bool

	channels      atomic.Int64
	authenticated atomic.Bool
	running       atomic.Bool
	wake          chan struct{}
}

// -----------------------------------------------------------------------------

func NewAggregator(cfg *models.MConfig, broker interfaces.IBrokerClient, relay interfaces.IPushRelay,
	store interfaces.IOrderStore, clock *utils.MarketClock, log *logger.Logger) *Aggregator {
	return &Aggregator{
		Broker:          broker,
		Relay:           relay,
		Store:           store,
		Clock:           clock,
		Logger:          log,
		ServerType:      models.ServerType(cfg.Broker.ServerType),
		interval:        time.Duration(cfg.Refresh.IntervalSeconds) * time.Second,
		pauseWhenClosed: cfg.Refresh.PauseWhenMarketClosed,
		wake:            make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------
// Refresh
// -----------------------------------------------------------------------------

// Refresh reads account, holdings, open orders and today's fills in that
// order. Any failure fails the whole refresh.
func (a *Aggregator) Refresh(ctx context.Context) (*models.MAccountView, error) {
	account, err := a.Broker.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	holdings, err := a.Broker.GetHoldings(ctx)
	if err != nil {
		return nil, err
	}

	openOrders, err := a.Broker.GetOpenOrders(ctx)
	if err != nil {
		return nil, err
	}

	today := a.Clock.Today()
	fills, err := a.Broker.GetFills(ctx, models.MDateRange{Start: today, End: today})
	if err != nil {
		return nil, err
	}

	view := &models.MAccountView{
		CashBalance:   account.CashBalance,
		TotalAssets:   account.TotalAssets,
		UnrealizedPnL: account.UnrealizedPnL,
		ReturnRate:    account.ReturnRate,
		Holdings:      holdings,
		OpenOrders:    openOrders,
		Fills:         fills,
		MarketOpen:    a.Clock.IsMarketOpen(),
		RefreshedAt:   a.Clock.Now(),
	}

	a.syncJournal(openOrders, fills)
	return view, nil
}

// -----------------------------------------------------------------------------

// RefreshAndPublish broadcasts a fresh view, then pushes quotes for every
// subscribed symbol. Nothing is broadcast when the refresh fails.
func (a *Aggregator) RefreshAndPublish(ctx context.Context) error {
	view, err := a.Refresh(ctx)
	if err != nil {
		if helpers.IsAuthError(err) {
			// the session listener stops the task
			a.Logger.Info("session ended during refresh: %v", err)
			return err
		}
		a.Logger.Warning("refresh failed, nothing published: %v", err)
		return err
	}

	if err := a.Relay.Broadcast(ctx, view); err != nil {
		return err
	}

	a.publishQuotes(ctx)
	return nil
}

// -----------------------------------------------------------------------------

func (a *Aggregator) publishQuotes(ctx context.Context) {
	symbols, err := a.Relay.SubscribedSymbols(ctx)
	if err != nil {
		return
	}
	for _, code := range symbols {
		quote, err := a.Broker.GetQuote(ctx, code)
		if err != nil {
			a.Logger.Warning("quote %s failed: %v", code, err)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if err := a.Relay.PublishQuote(ctx, code, quote); err != nil {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// syncJournal copies broker-observed statuses into the order journal.
func (a *Aggregator) syncJournal(openOrders []models.MOrderRecord, fills []models.MFill) {
	if a.Store == nil {
		return
	}
	// ka10075 and ka10076 only report the current trading day
	today := a.Clock.Today()
	key := func(id string) models.MOrderKey {
		return models.MOrderKey{ServerType: a.ServerType, OrderDate: today, OrderID: id}
	}

	for _, o := range openOrders {
		if err := a.Store.UpdateStatus(key(o.OrderID), o.Status, o.FilledQuantity); err != nil {
			a.Logger.Warning("journal update failed: %v", err)
		}
	}

	// ka10076 reports one row per execution
	filled := make(map[string]int64)
	last := make(map[string]models.MFill)
	for _, f := range fills {
		filled[f.OrderID] += f.Quantity
		last[f.OrderID] = f
	}
	for id, f := range last {
		if err := a.Store.UpdateStatus(key(id), kiwoom.FillStatus(f), filled[id]); err != nil {
			a.Logger.Warning("journal update failed: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------
// Presence and session hooks
// -----------------------------------------------------------------------------

// ChannelsChanged is called from the relay loop and never blocks.
func (a *Aggregator) ChannelsChanged(count int) {
	a.channels.Store(int64(count))
	a.poke()
}

// -----------------------------------------------------------------------------

// SessionChanged is registered as a session listener and never blocks.
func (a *Aggregator) SessionChanged(s models.MSession) {
	a.authenticated.Store(s.Authenticated)
	a.poke()
}

// -----------------------------------------------------------------------------

func (a *Aggregator) poke() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) IsRunning() bool {
	return a.running.Load()
}

// -----------------------------------------------------------------------------

func (a *Aggregator) shouldRun() bool {
	return a.channels.Load() > 0 && a.authenticated.Load()
}

// -----------------------------------------------------------------------------
// Supervisor
// -----------------------------------------------------------------------------

// Run starts and stops the periodic task as presence and session change.
// It returns once ctx is cancelled and the task has stopped.
func (a *Aggregator) Run(ctx context.Context) {
	var (
		cancelTask context.CancelFunc
		taskDone   chan struct{}
	)

	stop := func() {
		if cancelTask == nil {
			return
		}
		cancelTask()
		<-taskDone
		cancelTask, taskDone = nil, nil
		a.Logger.Info("refresh task stopped")
	}
	defer stop()

	for {
		want := a.shouldRun()
		if want && cancelTask == nil {
			var taskCtx context.Context
			taskCtx, cancelTask = context.WithCancel(ctx)
			taskDone = make(chan struct{})
			a.Logger.Info("refresh task started (every %v)", a.interval)
			go a.runLoop(taskCtx, taskDone)
		} else if !want && cancelTask != nil {
			stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		case <-taskDone:
			// task ended on its own
			cancelTask()
			cancelTask, taskDone = nil, nil
		}
	}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) runLoop(ctx context.Context, done chan struct{}) {
	a.running.Store(true)
	defer func() {
		a.running.Store(false)
		close(done)
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// -----------------------------------------------------------------------------

func (a *Aggregator) tick(ctx context.Context) {
	if a.pauseWhenClosed && !a.Clock.IsMarketOpen() {
		a.Logger.Debug("market closed, skipping refresh")
		return
	}
	_ = a.RefreshAndPublish(ctx)
}
