package server

import (
	"net/http"
	"strconv"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Public routes
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	connections, _ := s.Relay.ChannelCount(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": connections,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getServerStatus(c *gin.Context) {
	connections, _ := s.Relay.ChannelCount(c.Request.Context())
	respondOK(c, gin.H{
		"server_info":     s.Gate.ServerInfo(),
		"authenticated":   s.Gate.Status().Authenticated,
		"market_open":     s.Clock.IsMarketOpen(),
		"trading_day":     s.Clock.IsTradingDay(),
		"connections":     connections,
		"refresh_running": s.Dashboard.IsRunning(),
		"refresh_seconds": s.Config.Refresh.IntervalSeconds,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAuthStatus(c *gin.Context) {
	respondOK(c, s.Gate.Status())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postLogin(c *gin.Context) {
	result := s.Gate.Login(c.Request.Context())
	if !result.Success {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success":       false,
			"authenticated": false,
			"message":       result.Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"data":    s.Gate.Status(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postLogout(c *gin.Context) {
	result := s.Gate.Logout(c.Request.Context())
	respondMessage(c, http.StatusOK, result.Success, result.Message)
}

// -----------------------------------------------------------------------------
// requireAuth
// -----------------------------------------------------------------------------

func (s *DashboardServer) requireAuth(c *gin.Context) {
	if err := s.Gate.Authorize(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Next()
}

// -----------------------------------------------------------------------------
// Account
// -----------------------------------------------------------------------------

func (s *DashboardServer) getAccountView(c *gin.Context) {
	view, err := s.Dashboard.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getOpenOrders(c *gin.Context) {
	orders, err := s.Broker.GetOpenOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getExecutedOrders(c *gin.Context) {
	today := s.Clock.Today()
	dateRange := models.MDateRange{
		Start: c.DefaultQuery("start_date", today),
		End:   c.DefaultQuery("end_date", today),
	}
	if err := helpers.ValidateDateRange(dateRange); err != nil {
		respondError(c, err)
		return
	}

	fills, err := s.Broker.GetFills(c.Request.Context(), dateRange)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, fills)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getDeposit(c *gin.Context) {
	deposit, err := s.Broker.GetDeposit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, deposit)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAssets(c *gin.Context) {
	assets, err := s.Broker.GetEstimatedAssets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, assets)
}

// -----------------------------------------------------------------------------
// Trading diary
// -----------------------------------------------------------------------------

func (s *DashboardServer) getTradingDiary(c *gin.Context) {
	date := c.DefaultQuery("date", s.Clock.Today())
	if err := helpers.ValidateDate("date", date); err != nil {
		respondError(c, err)
		return
	}

	diary, err := s.Broker.GetTradingDiary(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, diary)
}

// -----------------------------------------------------------------------------

// getTradingSummaries defaults to the last 30 days, or 365 when monthly.
func (s *DashboardServer) getTradingSummaries(monthly bool) gin.HandlerFunc {
	lookback := 30
	if monthly {
		lookback = 365
	}
	return func(c *gin.Context) {
		dateRange := models.MDateRange{
			Start: c.DefaultQuery("start_date", s.Clock.DaysAgo(lookback)),
			End:   c.DefaultQuery("end_date", s.Clock.Today()),
		}
		summaries, err := s.Dashboard.TradingSummaries(c.Request.Context(), dateRange, monthly)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, summaries)
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getDailyTrading(c *gin.Context) {
	detail, err := s.Dashboard.DailyTrading(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, detail)
}

// -----------------------------------------------------------------------------
// Quotes
// -----------------------------------------------------------------------------

// getQuote also pushes the quote to channels subscribed to the symbol.
func (s *DashboardServer) getQuote(c *gin.Context) {
	code := c.Param("code")
	quote, err := s.Broker.GetQuote(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.Relay.PublishQuote(c.Request.Context(), code, quote); err != nil {
		s.Logger.Debug("quote %s not pushed: %v", code, err)
	}
	respondOK(c, quote)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getChart(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 3650 {
		respondError(c, helpers.NewValidationError("days", "days must be between 1 and 3650"))
		return
	}
	period := models.ChartPeriod(c.DefaultQuery("period", string(models.ChartDaily)))

	chart, err := s.Broker.GetChart(c.Request.Context(), c.Param("code"), period, days)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, chart)
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

type orderBody struct {
	SymbolCode string          `json:"symbol_code"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	OrderType  string          `json:"order_type"`
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postOrder(side models.OrderSide) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body orderBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, helpers.NewValidationError("body", "request body must be a JSON order"))
			return
		}

		req := models.MOrderRequest{
			SymbolCode: body.SymbolCode,
			Side:       side,
			Quantity:   body.Quantity,
			Price:      body.Price,
			OrderType:  models.OrderType(body.OrderType),
		}
		if err := helpers.ValidateOrderRequest(&req); err != nil {
			respondError(c, err)
			return
		}

		record, err := s.Broker.PlaceOrder(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		if s.Store != nil {
			if err := s.Store.SaveOrder(s.Gate.ServerInfo().ServerType, *record); err != nil {
				s.Logger.Error("order %s accepted but not journalled: %v", record.OrderID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order " + record.OrderID + " submitted",
			"data":    record,
		})
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postCancel(c *gin.Context) {
	var req models.MCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, helpers.NewValidationError("body", "request body must be a JSON cancel request"))
		return
	}
	if err := helpers.ValidateCancelRequest(&req); err != nil {
		respondError(c, err)
		return
	}

	record, err := s.Broker.CancelOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if s.Store != nil {
		key := models.MOrderKey{
			ServerType: s.Gate.ServerInfo().ServerType,
			OrderDate:  s.Clock.Today(),
			OrderID:    record.OrderID,
		}
		if err := s.Store.UpdateStatus(key, models.StatusCancelled, 0); err != nil {
			s.Logger.Error("cancel of %s not journalled: %v", record.OrderID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order " + record.OrderID + " cancelled",
		"data":    record,
	})
}

// -----------------------------------------------------------------------------

// postModify journals the replacement order and retires the original.
func (s *DashboardServer) postModify(c *gin.Context) {
	var req models.MModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, helpers.NewValidationError("body", "request body must be a JSON modify request"))
		return
	}
	if err := helpers.ValidateModifyRequest(&req); err != nil {
		respondError(c, err)
		return
	}

	record, err := s.Broker.ModifyOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if s.Store != nil {
		serverType := s.Gate.ServerInfo().ServerType
		original := models.MOrderKey{ServerType: serverType, OrderDate: s.Clock.Today(), OrderID: req.OrderID}
		if err := s.Store.UpdateStatus(original, models.StatusCancelled, 0); err != nil {
			s.Logger.Error("modify of %s not journalled: %v", req.OrderID, err)
		}
		if err := s.Store.SaveOrder(serverType, *record); err != nil {
			s.Logger.Error("order %s accepted but not journalled: %v", record.OrderID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order " + req.OrderID + " modified as " + record.OrderID,
		"data":    record,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getOrderHistory(c *gin.Context) {
	if s.Store == nil {
		respondOK(c, []models.MJournalEntry{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		respondError(c, helpers.NewValidationError("limit", "limit must be between 1 and 1000"))
		return
	}

	entries, err := s.Store.ListOrders(s.Gate.ServerInfo().ServerType, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, entries)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postCacheClear(c *gin.Context) {
	removed := 0
	if s.Cache != nil {
		n, err := s.Cache.Clear()
		if err != nil {
			s.Logger.Error("cache clear failed: %v", err)
			respondMessage(c, http.StatusInternalServerError, false, "Could not clear the response cache")
			return
		}
		removed = n
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Response cache cleared",
		"data":    gin.H{"removed": removed},
	})
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := NewClient(s.Relay, conn, s.Config.Relay.SendBuffer)
	if err := s.Relay.Connect(s.baseCtx, client); err != nil {
		s.Logger.Warning("relay refused channel: %v", err)
		conn.Close()
		return
	}

	s.Logger.Debug("channel %s connected from %s", client.ID(), c.ClientIP())
	go client.writePump()
	go client.readPump(s.baseCtx)
}
