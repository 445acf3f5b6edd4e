package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
	"kiwoom-dashboard/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

// DashboardServer is the HTTP facade: JSON routes plus the /ws push channel.
type DashboardServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Gate      interfaces.ISessionGate
	Broker    interfaces.IBrokerClient
	Dashboard interfaces.IDashboard
	Relay     *Relay
	Store     interfaces.IOrderStore
	Clock     *utils.MarketClock
	Cache     interfaces.IResponseCache // optional

	engine  *gin.Engine
	baseCtx context.Context
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, gate interfaces.ISessionGate, broker interfaces.IBrokerClient,
	dashboard interfaces.IDashboard, relay *Relay, store interfaces.IOrderStore, clock *utils.MarketClock,
	log *logger.Logger) *DashboardServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:    cfg,
		Logger:    log,
		Gate:      gate,
		Broker:    broker,
		Dashboard: dashboard,
		Relay:     relay,
		Store:     store,
		Clock:     clock,
		engine:    gin.New(),
		baseCtx:   context.Background(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.getHealth)
	api.GET("/server/status", s.getServerStatus)

	auth := api.Group("/auth")
	auth.GET("/status", s.getAuthStatus)
	auth.POST("/login", s.postLogin)
	auth.POST("/logout", s.postLogout)

	protected := api.Group("", s.requireAuth)
	protected.GET("/account/view", s.getAccountView)
	protected.GET("/account/orders/open", s.getOpenOrders)
	protected.GET("/account/orders/executed", s.getExecutedOrders)
	protected.GET("/account/deposit", s.getDeposit)
	protected.GET("/account/assets", s.getAssets)
	protected.GET("/account/trading-diary", s.getTradingDiary)
	protected.GET("/account/trading/daily", s.getTradingSummaries(false))
	protected.GET("/account/trading/monthly", s.getTradingSummaries(true))
	protected.GET("/account/trading/daily/:date", s.getDailyTrading)
	protected.GET("/quote/stock/:code", s.getQuote)
	protected.GET("/quote/chart/:code", s.getChart)
	protected.POST("/order/buy", s.postOrder(models.SideBuy))
	protected.POST("/order/sell", s.postOrder(models.SideSell))
	protected.POST("/order/modify", s.postModify)
	protected.POST("/order/cancel", s.postCancel)
	protected.GET("/orders/history", s.getOrderHistory)
	protected.POST("/cache/clear", s.postCacheClear)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *DashboardServer) Start(ctx context.Context) error {
	s.baseCtx = ctx
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.Logger.Info("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.Logger.Info("server stopped")
	return nil
}
