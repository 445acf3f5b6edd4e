package kiwoom

import (
	"context"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"
)

const (
	apiBuy    = "kt10000"
	apiSell   = "kt10001"
	apiModify = "kt10002"
	apiCancel = "kt10003"

	// limit order ("보통")
	tradeTypeLimit = "0"
)

type orderResponse struct {
	OrderNo  string `json:"ord_no"`
	Exchange string `json:"dmst_stex_tp"`
}

type modifyResponse struct {
	OrderNo         string `json:"ord_no"`
	OriginalOrderNo string `json:"base_orig_ord_no"`
	ModifyQuantity  string `json:"mdfy_qty"`
}

type cancelResponse struct {
	OrderNo         string `json:"ord_no"`
	OriginalOrderNo string `json:"base_orig_ord_no"`
	CancelQuantity  string `json:"cncl_qty"`
}

// -----------------------------------------------------------------------------
// PlaceOrder
// -----------------------------------------------------------------------------

// PlaceOrder submits a cash limit order. Invalid requests never reach the
// broker.
func (c *Client) PlaceOrder(ctx context.Context, req models.MOrderRequest) (*models.MOrderRecord, error) {
	if err := helpers.ValidateOrderRequest(&req); err != nil {
		return nil, err
	}

	apiID := apiBuy
	if req.Side == models.SideSell {
		apiID = apiSell
	}

	body := map[string]string{
		"dmst_stex_tp": c.Config.Exchange,
		"stk_cd":       req.SymbolCode,
		"ord_qty":      itoa(req.Quantity),
		"ord_uv":       req.Price.StringFixed(0),
		"trde_tp":      tradeTypeLimit,
		"cond_uv":      "",
	}

	c.Logger.Info("%s order: %s x%d @ %s", req.Side, req.SymbolCode, req.Quantity, req.Price.String())

	var res orderResponse
	if err := c.call(ctx, pathOrder, apiID, body, &res); err != nil {
		return nil, err
	}
	if res.OrderNo == "" {
		return nil, helpers.NewTransportError(apiID+" returned no order number", nil)
	}

	return &models.MOrderRecord{
		OrderID:     res.OrderNo,
		SymbolCode:  req.SymbolCode,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Status:      models.StatusPending,
		SubmittedAt: c.now(),
	}, nil
}

// -----------------------------------------------------------------------------
// CancelOrder
// -----------------------------------------------------------------------------

// CancelOrder cancels req.Quantity shares; 0 cancels everything left.
func (c *Client) CancelOrder(ctx context.Context, req models.MCancelRequest) (*models.MOrderRecord, error) {
	if err := helpers.ValidateCancelRequest(&req); err != nil {
		return nil, err
	}

	body := map[string]string{
		"dmst_stex_tp": c.Config.Exchange,
		"orig_ord_no":  req.OrderID,
		"stk_cd":       req.SymbolCode,
		"cncl_qty":     itoa(req.Quantity),
	}

	c.Logger.Info("cancel order %s (%s x%d)", req.OrderID, req.SymbolCode, req.Quantity)

	var res cancelResponse
	if err := c.call(ctx, pathOrder, apiCancel, body, &res); err != nil {
		return nil, err
	}

	return &models.MOrderRecord{
		OrderID:     req.OrderID,
		SymbolCode:  req.SymbolCode,
		Quantity:    qty(res.CancelQuantity),
		Status:      models.StatusCancelled,
		SubmittedAt: c.now(),
	}, nil
}

// -----------------------------------------------------------------------------
// ModifyOrder
// -----------------------------------------------------------------------------

// ModifyOrder replaces quantity and price of a resting order. Kiwoom answers
// with a new order number; the returned record carries it.
func (c *Client) ModifyOrder(ctx context.Context, req models.MModifyRequest) (*models.MOrderRecord, error) {
	if err := helpers.ValidateModifyRequest(&req); err != nil {
		return nil, err
	}

	body := map[string]string{
		"dmst_stex_tp": c.Config.Exchange,
		"orig_ord_no":  req.OrderID,
		"stk_cd":       req.SymbolCode,
		"mdfy_qty":     itoa(req.Quantity),
		"mdfy_uv":      req.Price.StringFixed(0),
		"mdfy_cond_uv": "",
	}

	c.Logger.Info("modify order %s: %s x%d @ %s", req.OrderID, req.SymbolCode, req.Quantity, req.Price.String())

	var res modifyResponse
	if err := c.call(ctx, pathOrder, apiModify, body, &res); err != nil {
		return nil, err
	}
	if res.OrderNo == "" {
		return nil, helpers.NewTransportError(apiModify+" returned no order number", nil)
	}

	quantity := qty(res.ModifyQuantity)
	if quantity == 0 {
		quantity = req.Quantity
	}
	return &models.MOrderRecord{
		OrderID:     res.OrderNo,
		SymbolCode:  req.SymbolCode,
		Side:        req.Side,
		Quantity:    quantity,
		Price:       req.Price,
		Status:      models.StatusPending,
		SubmittedAt: c.now(),
	}, nil
}
