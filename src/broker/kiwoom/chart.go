package kiwoom

import (
	"context"
	"sort"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"
)

const (
	apiDailyChart   = "ka10081"
	apiWeeklyChart  = "ka10082"
	apiMonthlyChart = "ka10083"
)

var chartAPIs = map[models.ChartPeriod]string{
	models.ChartDaily:   apiDailyChart,
	models.ChartWeekly:  apiWeeklyChart,
	models.ChartMonthly: apiMonthlyChart,
}

type candleRow struct {
	Date        string `json:"dt"`
	Open        string `json:"open_pric"`
	High        string `json:"high_pric"`
	Low         string `json:"low_pric"`
	Close       string `json:"cur_prc"`
	Volume      string `json:"trde_qty"`
	TradeAmount string `json:"trde_prica"`
}

// each period answers under its own key
type chartResponse struct {
	Daily   []candleRow `json:"stk_dt_pole_chart_qry"`
	Weekly  []candleRow `json:"stk_stk_pole_chart_qry"`
	Monthly []candleRow `json:"stk_mth_pole_chart_qry"`
}

func (r *chartResponse) rows() []candleRow {
	switch {
	case len(r.Daily) > 0:
		return r.Daily
	case len(r.Weekly) > 0:
		return r.Weekly
	default:
		return r.Monthly
	}
}

// -----------------------------------------------------------------------------

// GetChart returns adjusted-price candles covering the last days calendar
// days, oldest first. Only the first page is read.
func (c *Client) GetChart(ctx context.Context, symbolCode string, period models.ChartPeriod, days int) (*models.MChart, error) {
	if err := helpers.ValidateSymbolCode(symbolCode); err != nil {
		return nil, err
	}
	if err := helpers.ValidateChartPeriod(period); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, helpers.NewValidationError("days", "days must be greater than 0")
	}

	now := c.now()
	body := map[string]string{
		"stk_cd":       symbolCode,
		"base_dt":      Today(now),
		"upd_stkpc_tp": "1",
	}

	apiID := chartAPIs[period]
	var res chartResponse
	if err := c.cachedCall(ctx, pathChart, apiID, body, &res); err != nil {
		return nil, err
	}

	candles := make([]models.MCandle, 0)
	for _, r := range res.rows() {
		candles = append(candles, models.MCandle{
			Date:        r.Date,
			Open:        price(r.Open),
			High:        price(r.High),
			Low:         price(r.Low),
			Close:       price(r.Close),
			Volume:      qty(r.Volume),
			TradeAmount: num(r.TradeAmount),
		})
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Date < candles[j].Date })

	since := Today(now.AddDate(0, 0, -days))
	first := sort.Search(len(candles), func(i int) bool { return candles[i].Date >= since })
	// a weekly or monthly bar that opened before the window still overlaps it
	if period != models.ChartDaily && first > 0 {
		first--
	}
	candles = candles[first:]

	return &models.MChart{SymbolCode: symbolCode, Period: period, Candles: candles}, nil
}
