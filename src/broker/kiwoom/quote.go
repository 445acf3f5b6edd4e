package kiwoom

import (
	"context"
	"strings"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"
)

const apiBasicInfo = "ka10001"

type basicInfoResponse struct {
	Code         string `json:"stk_cd"`
	Name         string `json:"stk_nm"`
	CurrentPrice string `json:"cur_prc"`
	Change       string `json:"pred_pre"`
	ChangeRate   string `json:"flu_rt"`
	Volume       string `json:"trde_qty"`
	Open         string `json:"open_pric"`
	High         string `json:"high_pric"`
	Low          string `json:"low_pric"`
}

// -----------------------------------------------------------------------------

// GetQuote fetches the basic stock information snapshot.
func (c *Client) GetQuote(ctx context.Context, symbolCode string) (*models.MQuote, error) {
	if err := helpers.ValidateSymbolCode(symbolCode); err != nil {
		return nil, err
	}

	var res basicInfoResponse
	if err := c.call(ctx, pathStockInfo, apiBasicInfo, map[string]string{"stk_cd": symbolCode}, &res); err != nil {
		return nil, err
	}

	code := symbol(res.Code)
	if code == "" {
		code = symbolCode
	}
	return &models.MQuote{
		SymbolCode:   code,
		SymbolName:   strings.TrimSpace(res.Name),
		CurrentPrice: price(res.CurrentPrice),
		Change:       num(res.Change),
		ChangeRate:   num(res.ChangeRate),
		Volume:       qty(res.Volume),
		Open:         price(res.Open),
		High:         price(res.High),
		Low:          price(res.Low),
		FetchedAt:    c.now(),
	}, nil
}
