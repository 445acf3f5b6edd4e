package main

import (
	"context"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

// runServers orchestrates the relay, refresh supervisor, HTTP facade and gRPC
// control plane until a signal arrives or one of them fails
func runServers(parent context.Context, app *App) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// 1. Push relay registry
	g.Go(func() error {
		app.Relay.Run(ctx)
		return nil
	})

	// 2. Refresh supervisor
	g.Go(func() error {
		app.Aggregator.Run(ctx)
		return nil
	})

	// 3. HTTP facade
	g.Go(func() error {
		return app.Server.Start(ctx)
	})

	// 4. gRPC control
	g.Go(func() error {
		return app.Control.Start(ctx)
	})

	app.Logger.Info("%s running (server: %s)", app.Config.Name, app.Config.Broker.ServerType)
	err := g.Wait()
	app.Logger.Info("Shutdown complete.")
	return err
}
