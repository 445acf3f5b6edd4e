package kiwoom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type stubTokens struct {
	mu        sync.Mutex
	token     string
	next      string
	refreshes int
	dropped   []string
	err       error
}

func (s *stubTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.err
}

func (s *stubTokens) Refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.err != nil {
		return "", s.err
	}
	s.token = s.next
	return s.token, nil
}

func (s *stubTokens) Invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = append(s.dropped, stale)
}

type recorded struct {
	apiID   string
	auth    string
	contYn  string
	nextKey string
	body    map[string]string
}

type fakeBroker struct {
	mu       sync.Mutex
	calls    []recorded
	handlers map[string]func(w http.ResponseWriter, r *http.Request, n int)
}

func newFakeBroker(t *testing.T) (*fakeBroker, *httptest.Server) {
	fb := &fakeBroker{handlers: map[string]func(http.ResponseWriter, *http.Request, int){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		fb.mu.Lock()
		apiID := r.Header.Get("api-id")
		fb.calls = append(fb.calls, recorded{
			apiID:   apiID,
			auth:    r.Header.Get("Authorization"),
			contYn:  r.Header.Get("cont-yn"),
			nextKey: r.Header.Get("next-key"),
			body:    body,
		})
		n := 0
		for _, c := range fb.calls {
			if c.apiID == apiID {
				n++
			}
		}
		h := fb.handlers[apiID]
		fb.mu.Unlock()

		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r, n)
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBroker) on(apiID string, h func(w http.ResponseWriter, r *http.Request, n int)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[apiID] = h
}

func (fb *fakeBroker) count() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.calls)
}

func (fb *fakeBroker) call(i int) recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[i]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	_ = json.NewEncoder(w).Encode(v)
}

func testBrokerConfig(url string) *models.MBrokerConfig {
	return &models.MBrokerConfig{
		ServerType:     "mock",
		Mock:           models.MBrokerServerConfig{Domain: url, AppKey: "app", SecretKey: "secret"},
		Exchange:       "KRX",
		RequestTimeout: 5,
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBroker, *stubTokens) {
	fb, srv := newFakeBroker(t)
	tokens := &stubTokens{token: "tok-1", next: "tok-2"}
	c := NewClient(testBrokerConfig(srv.URL), tokens, logger.NewNopLogger("test"))
	c.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, seoul) }
	return c, fb, tokens
}

// -----------------------------------------------------------------------------
// Account
// -----------------------------------------------------------------------------

func TestGetAccountParsesEvaluation(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{
			"entr":               "000001000000",
			"tot_est_amt":        "000000750000",
			"tot_pur_amt":        "000000700000",
			"prsm_dpst_aset_amt": "000001750000",
			"return_code":        0,
			"return_msg":         "조회가 완료되었습니다",
		})
	})

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)

	assert.True(t, acct.CashBalance.Equal(decimal.NewFromInt(1000000)))
	assert.True(t, acct.TotalAssets.Equal(decimal.NewFromInt(1750000)))
	assert.True(t, acct.UnrealizedPnL.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "7.14", acct.ReturnRate.StringFixed(2))

	first := fb.call(0)
	assert.Equal(t, "Bearer tok-1", first.auth)
	assert.Equal(t, "KRX", first.body["dmst_stex_tp"])
}

func TestGetHoldingsStripsPrefixAndKeepsOrder(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiBalanceDetail, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{
			"acnt_evlt_remn_indv_tot": []map[string]string{
				{"stk_cd": "A005930", "stk_nm": "삼성전자", "rmnd_qty": "000000000010", "pur_pric": "000000070000", "cur_prc": "-000000075000", "evltv_prft": "50000", "prft_rt": "7.14"},
				{"stk_cd": "A000660", "stk_nm": "SK하이닉스", "rmnd_qty": "000000000002", "pur_pric": "000000150000", "cur_prc": "+000000140000", "evltv_prft": "-20000", "prft_rt": "-6.67"},
			},
			"return_code": 0,
			"return_msg":  "",
		})
	})

	holdings, err := c.GetHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	h := holdings[0]
	assert.Equal(t, "005930", h.SymbolCode)
	assert.Equal(t, "삼성전자", h.SymbolName)
	assert.Equal(t, int64(10), h.Quantity)
	assert.True(t, h.AveragePrice.Equal(decimal.NewFromInt(70000)))
	assert.True(t, h.CurrentPrice.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, "000660", holdings[1].SymbolCode)
	assert.True(t, holdings[1].PnL.IsNegative())
}

func TestGetHoldingsFollowsContinuation(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiBalanceDetail, func(w http.ResponseWriter, r *http.Request, n int) {
		code := "A005930"
		if n == 1 {
			w.Header().Set("cont-yn", "Y")
			w.Header().Set("next-key", "page-2")
		} else {
			code = "A035420"
		}
		writeJSON(w, map[string]interface{}{
			"acnt_evlt_remn_indv_tot": []map[string]string{{"stk_cd": code, "rmnd_qty": "1"}},
			"return_code":             0,
		})
	})

	holdings, err := c.GetHoldings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "005930", holdings[0].SymbolCode)
	assert.Equal(t, "035420", holdings[1].SymbolCode)

	require.Equal(t, 2, fb.count())
	assert.Empty(t, fb.call(0).contYn)
	assert.Equal(t, "Y", fb.call(1).contYn)
	assert.Equal(t, "page-2", fb.call(1).nextKey)
}

func TestGetOpenOrdersAndFills(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiUnexecuted, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{
			"oso": []map[string]string{
				{"ord_no": "0000123", "stk_cd": "005930", "io_tp_nm": "+매수", "ord_qty": "10", "ord_pric": "70000", "oso_qty": "10", "cntr_qty": "0"},
				{"ord_no": "0000124", "stk_cd": "005930", "io_tp_nm": "-매도", "ord_qty": "5", "ord_pric": "72000", "oso_qty": "3", "cntr_qty": "2"},
			},
			"return_code": 0,
		})
	})
	fb.on(apiExecuted, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{
			"cntr": []map[string]string{
				{"ord_no": "0000124", "stk_cd": "005930", "io_tp_nm": "-매도", "cntr_pric": "72000", "cntr_qty": "2", "oso_qty": "3", "ord_stt": "체결", "ord_tm": "093015"},
			},
			"return_code": 0,
		})
	})

	open, err := c.GetOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, models.SideBuy, open[0].Side)
	assert.Equal(t, models.StatusPending, open[0].Status)
	assert.Equal(t, models.SideSell, open[1].Side)
	assert.Equal(t, models.StatusPartiallyFilled, open[1].Status)

	fills, err := c.GetFills(context.Background(), models.MDateRange{Start: "20250314", End: "20250314"})
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(2), fills[0].Quantity)
	assert.Equal(t, models.StatusPartiallyFilled, FillStatus(fills[0]))

	last := fb.call(fb.count() - 1)
	assert.Equal(t, "20250314", last.body["strt_dt"])
	assert.Equal(t, "20250314", last.body["end_dt"])
}

func TestFillStatus(t *testing.T) {
	assert.Equal(t, models.StatusFilled, FillStatus(models.MFill{State: "체결"}))
	assert.Equal(t, models.StatusPartiallyFilled, FillStatus(models.MFill{State: "체결", RemainingQuantity: 1}))
	assert.Equal(t, models.StatusCancelled, FillStatus(models.MFill{State: "취소확인"}))
}

// -----------------------------------------------------------------------------
// Orders
// -----------------------------------------------------------------------------

func TestPlaceOrderInvalidMakesNoCall(t *testing.T) {
	c, fb, _ := newTestClient(t)

	tests := []models.MOrderRequest{
		{SymbolCode: "005930", Side: models.SideBuy, Quantity: 0, Price: decimal.NewFromInt(70000)},
		{SymbolCode: "005930", Side: models.SideBuy, Quantity: 1, Price: decimal.Zero},
		{SymbolCode: "5930", Side: models.SideBuy, Quantity: 1, Price: decimal.NewFromInt(70000)},
	}
	for _, req := range tests {
		_, err := c.PlaceOrder(context.Background(), req)
		var vErr *helpers.ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
	assert.Equal(t, 0, fb.count())
}

func TestPlaceOrderSendsOneRequest(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiSell, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{"ord_no": "0000139", "dmst_stex_tp": "KRX", "return_code": 0, "return_msg": "매도주문이 완료되었습니다"})
	})

	rec, err := c.PlaceOrder(context.Background(), models.MOrderRequest{
		SymbolCode: "005930",
		Side:       models.SideSell,
		Quantity:   3,
		Price:      decimal.NewFromInt(71000),
	})
	require.NoError(t, err)
	assert.Equal(t, "0000139", rec.OrderID)
	assert.Equal(t, models.StatusPending, rec.Status)

	require.Equal(t, 1, fb.count())
	sent := fb.call(0)
	assert.Equal(t, apiSell, sent.apiID)
	assert.Equal(t, "3", sent.body["ord_qty"])
	assert.Equal(t, "71000", sent.body["ord_uv"])
	assert.Equal(t, "0", sent.body["trde_tp"])
}

func TestCancelOrder(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiCancel, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{"ord_no": "0000140", "base_orig_ord_no": "0000139", "cncl_qty": "3", "return_code": 0})
	})

	rec, err := c.CancelOrder(context.Background(), models.MCancelRequest{OrderID: "0000139", SymbolCode: "005930"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rec.Status)
	assert.Equal(t, int64(3), rec.Quantity)
	assert.Equal(t, "0000139", fb.call(0).body["orig_ord_no"])
	assert.Equal(t, "0", fb.call(0).body["cncl_qty"])
}

// -----------------------------------------------------------------------------
// Token handling and errors
// -----------------------------------------------------------------------------

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	c, fb, tokens := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"entr": "1000", "return_code": 0})
	})

	acct, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.True(t, acct.CashBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, fb.count())
}

func TestTokenCodeInBodyRefreshes(t *testing.T) {
	c, fb, tokens := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		if n == 1 {
			writeJSON(w, map[string]interface{}{"return_code": 3, "return_msg": "[8005:Token이 유효하지 않습니다]"})
			return
		}
		writeJSON(w, map[string]interface{}{"entr": "1", "return_code": 0})
	})

	_, err := c.GetAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, "Bearer tok-2", fb.call(1).auth)
}

func TestSecondUnauthorizedIsAuthError(t *testing.T) {
	c, fb, tokens := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetAccount(context.Background())
	assert.True(t, helpers.IsAuthError(err))
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, fb.count())
	assert.Equal(t, []string{"tok-2"}, tokens.dropped)
}

func TestSecondTokenCodeIsAuthError(t *testing.T) {
	c, fb, tokens := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{"return_code": 3, "return_msg": "[8005:Token이 유효하지 않습니다]"})
	})

	_, err := c.GetAccount(context.Background())
	require.Error(t, err)
	assert.True(t, helpers.IsAuthError(err))
	var upErr *helpers.UpstreamError
	assert.False(t, errors.As(err, &upErr))
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, fb.count())
	assert.Equal(t, []string{"tok-2"}, tokens.dropped)
}

func TestUpstreamErrorCarriesCode(t *testing.T) {
	c, fb, tokens := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{"return_code": 2, "return_msg": "[2000](RC4010:모의투자 영업일이 아닙니다)"})
	})

	_, err := c.GetAccount(context.Background())
	var upErr *helpers.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "RC4010", upErr.Code)
	assert.Equal(t, 0, tokens.refreshes)
}

func TestServerErrorIsTransportError(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiEvaluation, func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetAccount(context.Background())
	var tErr *helpers.TransportError
	assert.ErrorAs(t, err, &tErr)
}

func TestGetQuote(t *testing.T) {
	c, fb, _ := newTestClient(t)
	fb.on(apiBasicInfo, func(w http.ResponseWriter, r *http.Request, n int) {
		writeJSON(w, map[string]interface{}{
			"stk_cd": "005930", "stk_nm": "삼성전자", "cur_prc": "-75000", "pred_pre": "-500",
			"flu_rt": "-0.66", "trde_qty": "1234567", "return_code": 0,
		})
	})

	q, err := c.GetQuote(context.Background(), "005930")
	require.NoError(t, err)
	assert.True(t, q.CurrentPrice.Equal(decimal.NewFromInt(75000)))
	assert.True(t, q.Change.Equal(decimal.NewFromInt(-500)))
	assert.Equal(t, int64(1234567), q.Volume)

	_, err = c.GetQuote(context.Background(), "ABC")
	assert.Error(t, err)
	assert.Equal(t, 1, fb.count())
}
