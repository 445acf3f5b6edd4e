package main

import (
	"time"

	"kiwoom-dashboard/src/aggregator"
	"kiwoom-dashboard/src/broker/kiwoom"
	"kiwoom-dashboard/src/config"
	"kiwoom-dashboard/src/grpc_control"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
	"kiwoom-dashboard/src/server"
	"kiwoom-dashboard/src/session"
	"kiwoom-dashboard/src/storage"
	"kiwoom-dashboard/src/utils"

	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------

// App is the wired process.
type App struct {
	Config     *config.Config
	Logger     *logger.Logger
	Gate       *session.Gate
	Broker     *kiwoom.Client
	Store      interfaces.IOrderStore
	Relay      *server.Relay
	Aggregator *aggregator.Aggregator
	Server     *server.DashboardServer
	Control    *grpc_control.ControlService
}

// -----------------------------------------------------------------------------

// setupApp loads the config and wires every component
func setupApp(configPath, envFile string) (*App, error) {
	conf, err := config.NewConfig(configPath, envFile)
	if err != nil {
		return nil, err
	}

	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	if !conf.HasCredentials() {
		appLogger.Warning("no app key/secret for the %s server; login will fail until KIWOOM_APP_KEY_%s is set",
			conf.Broker.ServerType, envSuffix(conf.Broker.ServerType))
	}

	store, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		return nil, err
	}

	gate, broker := setupBroker(conf.MConfig)
	clock := utils.NewMarketClock(conf.Broker.Exchange, logger.NewLogger(conf.MConfig, "MarketClock"))

	relay := server.NewRelay(logger.NewLogger(conf.MConfig, "PushRelay"))
	agg := aggregator.NewAggregator(conf.MConfig, broker, relay, store, clock, logger.NewLogger(conf.MConfig, "Aggregator"))
	relay.AddObserver(agg)
	gate.OnChange(agg.SessionChanged)

	control := grpc_control.NewControlService(conf.MConfig, logger.NewLogger(conf.MConfig, "ControlService"))
	gate.OnChange(control.SessionChanged)

	srv := server.NewDashboardServer(conf.MConfig, gate, broker, agg, relay, store, clock,
		logger.NewLogger(conf.MConfig, "DashboardServer"))
	if broker.Cache != nil {
		srv.Cache = broker.Cache
		if n := broker.Cache.ClearExpired(); n > 0 {
			appLogger.Info("dropped %d expired response cache entries", n)
		}
	}

	if conf.Broker.RestoreCachedToken {
		gate.Restore()
	}
	agg.SessionChanged(gate.Session())
	control.SessionChanged(gate.Session())

	return &App{
		Config:     conf,
		Logger:     appLogger,
		Gate:       gate,
		Broker:     broker,
		Store:      store,
		Relay:      relay,
		Aggregator: agg,
		Server:     srv,
		Control:    control,
	}, nil
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the order journal based on config
func setupDatabase(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IOrderStore, error) {
	name := "SQLiteJournal"
	if cfg.Storage.DBType == "postgres" {
		name = "PostgresJournal"
	}

	store, err := storage.NewOrderStore(&cfg.Storage, logger.NewLogger(cfg, name))
	if err != nil {
		appLogger.Error("Failed to init order journal: %v", err)
		return nil, errors.Wrap(err, "order journal")
	}
	if store == nil {
		appLogger.Info("order journal disabled")
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupBroker wires the session gate in front of the broker client
func setupBroker(cfg *models.MConfig) (*session.Gate, *kiwoom.Client) {
	brokerLogger := logger.NewLogger(cfg, "KiwoomClient")

	auth := kiwoom.NewAuthenticator(&cfg.Broker, brokerLogger.Named("Auth"))
	cache := kiwoom.NewTokenCache(cfg.Broker.TokenCacheDir, models.ServerType(cfg.Broker.ServerType),
		time.Duration(cfg.Broker.TokenExpireBuffer)*time.Second)
	gate := session.NewGate(&cfg.Broker, auth, cache, logger.NewLogger(cfg, "SessionGate"))

	return gate, kiwoom.NewClient(&cfg.Broker, gate, brokerLogger)
}

// -----------------------------------------------------------------------------

func envSuffix(serverType string) string {
	if serverType == string(models.ServerReal) {
		return "REAL"
	}
	return "MOCK"
}

// -----------------------------------------------------------------------------

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warning("closing order journal: %v", err)
		}
	}
	a.Logger.Sync()
}
