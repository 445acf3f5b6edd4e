package kiwoom

import (
	"context"
	"encoding/json"
	"strings"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"

	"github.com/shopspring/decimal"
)

const (
	apiDeposit         = "kt00001"
	apiEstimatedAssets = "kt00003"
	apiEvaluation      = "kt00004"
	apiBalanceDetail   = "kt00018"
	apiUnexecuted      = "ka10075"
	apiExecuted        = "ka10076"
	apiTradingDiary    = "ka10170"
)

// -----------------------------------------------------------------------------
// Wire rows
// -----------------------------------------------------------------------------

type evaluationResponse struct {
	Deposit        string `json:"entr"`
	EstimatedTotal string `json:"tot_est_amt"`
	PurchaseTotal  string `json:"tot_pur_amt"`
	EstimatedAsset string `json:"prsm_dpst_aset_amt"`
}

type balanceRow struct {
	Code          string `json:"stk_cd"`
	Name          string `json:"stk_nm"`
	Quantity      string `json:"rmnd_qty"`
	PurchasePrice string `json:"pur_pric"`
	CurrentPrice  string `json:"cur_prc"`
	Profit        string `json:"evltv_prft"`
	ProfitRate    string `json:"prft_rt"`
}

type balanceResponse struct {
	Rows []balanceRow `json:"acnt_evlt_remn_indv_tot"`
}

type openOrderRow struct {
	OrderNo       string `json:"ord_no"`
	Code          string `json:"stk_cd"`
	Name          string `json:"stk_nm"`
	Side          string `json:"io_tp_nm"`
	OrderQuantity string `json:"ord_qty"`
	OrderPrice    string `json:"ord_pric"`
	Remaining     string `json:"oso_qty"`
	Filled        string `json:"cntr_qty"`
	OrderTime     string `json:"tm"`
}

type openOrderResponse struct {
	Rows []openOrderRow `json:"oso"`
}

type fillRow struct {
	OrderNo   string `json:"ord_no"`
	Code      string `json:"stk_cd"`
	Name      string `json:"stk_nm"`
	Side      string `json:"io_tp_nm"`
	Price     string `json:"cntr_pric"`
	Quantity  string `json:"cntr_qty"`
	Remaining string `json:"oso_qty"`
	State     string `json:"ord_stt"`
	Time      string `json:"ord_tm"`
	Date      string `json:"cntr_dt"`
	Fee       string `json:"tdy_trde_cmsn"`
	Tax       string `json:"tdy_trde_tax"`
}

type fillResponse struct {
	Rows []fillRow `json:"cntr"`
}

type depositResponse struct {
	Deposit      string `json:"entr"`
	MarginCash   string `json:"profa_ch"`
	D1Deposit    string `json:"d1_entra"`
	D2Deposit    string `json:"d2_entra"`
	Withdrawable string `json:"pymn_alow_amt"`
	Orderable    string `json:"ord_alow_amt"`
	Unsettled    string `json:"uncl_stk_amt"`
}

type estimatedAssetsResponse struct {
	EstimatedAssets string `json:"prsm_dpst_aset_amt"`
}

type diaryRow struct {
	Code          string `json:"stk_cd"`
	Name          string `json:"stk_nm"`
	BuyAvgPrice   string `json:"buy_avg_pric"`
	BuyQuantity   string `json:"buy_qty"`
	BuyAmount     string `json:"buy_amt"`
	SellAvgPrice  string `json:"sel_avg_pric"`
	SellQuantity  string `json:"sell_qty"`
	SellAmount    string `json:"sell_amt"`
	CommissionTax string `json:"cmsn_alm_tax"`
	Profit        string `json:"pl_amt"`
	ProfitRate    string `json:"prft_rt"`
}

type diaryResponse struct {
	BuyAmount     string     `json:"tot_buy_amt"`
	SellAmount    string     `json:"tot_sell_amt"`
	CommissionTax string     `json:"tot_cmsn_tax"`
	Profit        string     `json:"tot_pl_amt"`
	ProfitRate    string     `json:"tot_prft_rt"`
	Rows          []diaryRow `json:"tdy_trde_diary"`
}

// -----------------------------------------------------------------------------
// GetAccount
// -----------------------------------------------------------------------------

func (c *Client) GetAccount(ctx context.Context) (*models.MAccountSummary, error) {
	body := map[string]string{
		"qry_tp":       "0",
		"dmst_stex_tp": c.Config.Exchange,
	}

	var res evaluationResponse
	if err := c.call(ctx, pathAccount, apiEvaluation, body, &res); err != nil {
		return nil, err
	}

	estimated := num(res.EstimatedTotal)
	purchased := num(res.PurchaseTotal)
	pnl := estimated.Sub(purchased)
	rate := decimal.Zero
	if purchased.IsPositive() {
		rate = pnl.Div(purchased).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &models.MAccountSummary{
		CashBalance:   num(res.Deposit),
		TotalAssets:   num(res.EstimatedAsset),
		UnrealizedPnL: pnl,
		ReturnRate:    rate,
	}, nil
}

// -----------------------------------------------------------------------------
// GetHoldings
// -----------------------------------------------------------------------------

// GetHoldings keeps the broker's row order.
func (c *Client) GetHoldings(ctx context.Context) ([]models.MHoldingRow, error) {
	body := map[string]string{
		"qry_tp":       "1",
		"dmst_stex_tp": c.Config.Exchange,
	}

	holdings := make([]models.MHoldingRow, 0)
	err := c.callPaged(ctx, pathAccount, apiBalanceDetail, body, func(raw []byte) error {
		var res balanceResponse
		if err := json.Unmarshal(raw, &res); err != nil {
			return helpers.NewTransportError(apiBalanceDetail+" returned an undecodable body", err)
		}
		for _, r := range res.Rows {
			holdings = append(holdings, models.MHoldingRow{
				SymbolCode:   symbol(r.Code),
				SymbolName:   strings.TrimSpace(r.Name),
				Quantity:     qty(r.Quantity),
				AveragePrice: price(r.PurchasePrice),
				CurrentPrice: price(r.CurrentPrice),
				PnL:          num(r.Profit),
				PnLRate:      num(r.ProfitRate),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// -----------------------------------------------------------------------------
// GetOpenOrders
// -----------------------------------------------------------------------------

func (c *Client) GetOpenOrders(ctx context.Context) ([]models.MOrderRecord, error) {
	body := map[string]string{
		"all_stk_tp": "0",
		"trde_tp":    "0",
		"stk_cd":     "",
		"stex_tp":    "0",
	}

	orders := make([]models.MOrderRecord, 0)
	err := c.callPaged(ctx, pathAccount, apiUnexecuted, body, func(raw []byte) error {
		var res openOrderResponse
		if err := json.Unmarshal(raw, &res); err != nil {
			return helpers.NewTransportError(apiUnexecuted+" returned an undecodable body", err)
		}
		for _, r := range res.Rows {
			filled := qty(r.Filled)
			status := models.StatusPending
			if filled > 0 {
				status = models.StatusPartiallyFilled
			}
			orders = append(orders, models.MOrderRecord{
				OrderID:        r.OrderNo,
				SymbolCode:     symbol(r.Code),
				SymbolName:     strings.TrimSpace(r.Name),
				Side:           side(r.Side),
				Quantity:       qty(r.OrderQuantity),
				FilledQuantity: filled,
				Price:          price(r.OrderPrice),
				Status:         status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// -----------------------------------------------------------------------------
// GetFills
// -----------------------------------------------------------------------------

func (c *Client) GetFills(ctx context.Context, dateRange models.MDateRange) ([]models.MFill, error) {
	body := map[string]string{
		"stk_cd":  "",
		"qry_tp":  "0",
		"sell_tp": "0",
		"ord_no":  "",
		"stex_tp": "0",
	}
	if dateRange.Start != "" {
		body["strt_dt"] = dateRange.Start
	}
	if dateRange.End != "" {
		body["end_dt"] = dateRange.End
	}

	fills := make([]models.MFill, 0)
	err := c.callPaged(ctx, pathAccount, apiExecuted, body, func(raw []byte) error {
		var res fillResponse
		if err := json.Unmarshal(raw, &res); err != nil {
			return helpers.NewTransportError(apiExecuted+" returned an undecodable body", err)
		}
		for _, r := range res.Rows {
			fills = append(fills, models.MFill{
				OrderID:           r.OrderNo,
				SymbolCode:        symbol(r.Code),
				SymbolName:        strings.TrimSpace(r.Name),
				Side:              side(r.Side),
				Price:             price(r.Price),
				Quantity:          qty(r.Quantity),
				RemainingQuantity: qty(r.Remaining),
				State:             strings.TrimSpace(r.State),
				FilledAt:          r.Time,
				TradeDate:         strings.TrimSpace(r.Date),
				Commission:        num(r.Fee),
				Tax:               num(r.Tax),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fills, nil
}

// -----------------------------------------------------------------------------
// GetDeposit / GetEstimatedAssets
// -----------------------------------------------------------------------------

func (c *Client) GetDeposit(ctx context.Context) (*models.MDeposit, error) {
	var res depositResponse
	if err := c.cachedCall(ctx, pathAccount, apiDeposit, map[string]string{"qry_tp": "2"}, &res); err != nil {
		return nil, err
	}
	return &models.MDeposit{
		Deposit:            num(res.Deposit),
		MarginCash:         num(res.MarginCash),
		D1Deposit:          num(res.D1Deposit),
		D2Deposit:          num(res.D2Deposit),
		WithdrawableAmount: num(res.Withdrawable),
		OrderableAmount:    num(res.Orderable),
		UnsettledAmount:    num(res.Unsettled),
	}, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetEstimatedAssets(ctx context.Context) (*models.MEstimatedAssets, error) {
	var res estimatedAssetsResponse
	if err := c.cachedCall(ctx, pathAccount, apiEstimatedAssets, map[string]string{"qry_tp": "0"}, &res); err != nil {
		return nil, err
	}
	return &models.MEstimatedAssets{EstimatedAssets: num(res.EstimatedAssets)}, nil
}

// -----------------------------------------------------------------------------
// GetTradingDiary
// -----------------------------------------------------------------------------

// GetTradingDiary returns the per-symbol diary of date (YYYYMMDD); an empty
// date means today.
func (c *Client) GetTradingDiary(ctx context.Context, date string) (*models.MTradingDiary, error) {
	if date == "" {
		date = Today(c.now())
	}
	if err := helpers.ValidateDate("date", date); err != nil {
		return nil, err
	}

	body := map[string]string{
		"base_dt":   date,
		"ottks_tp":  "0",
		"ch_crd_tp": "0",
	}

	var res diaryResponse
	if err := c.cachedCall(ctx, pathAccount, apiTradingDiary, body, &res); err != nil {
		return nil, err
	}

	diary := &models.MTradingDiary{
		Date:          date,
		BuyAmount:     num(res.BuyAmount),
		SellAmount:    num(res.SellAmount),
		CommissionTax: num(res.CommissionTax),
		Profit:        num(res.Profit),
		ProfitRate:    num(res.ProfitRate),
		Rows:          make([]models.MDiaryRow, 0, len(res.Rows)),
	}
	for _, r := range res.Rows {
		diary.Rows = append(diary.Rows, models.MDiaryRow{
			SymbolCode:       symbol(r.Code),
			SymbolName:       strings.TrimSpace(r.Name),
			BuyAveragePrice:  price(r.BuyAvgPrice),
			BuyQuantity:      qty(r.BuyQuantity),
			BuyAmount:        num(r.BuyAmount),
			SellAveragePrice: price(r.SellAvgPrice),
			SellQuantity:     qty(r.SellQuantity),
			SellAmount:       num(r.SellAmount),
			CommissionTax:    num(r.CommissionTax),
			Profit:           num(r.Profit),
			ProfitRate:       num(r.ProfitRate),
		})
	}
	return diary, nil
}

// -----------------------------------------------------------------------------

// FillStatus derives the journal status a fill row implies.
func FillStatus(f models.MFill) models.OrderStatus {
	switch {
	case strings.Contains(f.State, "취소"):
		return models.StatusCancelled
	case f.RemainingQuantity > 0:
		return models.StatusPartiallyFilled
	default:
		return models.StatusFilled
	}
}
