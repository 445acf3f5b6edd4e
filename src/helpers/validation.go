package helpers

import (
	"time"

	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// ValidateSymbolCode accepts exactly six ASCII digits
func ValidateSymbolCode(code string) error {
	if len(code) != 6 {
		return NewValidationError("symbol_code", "symbol code must be exactly 6 digits")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return NewValidationError("symbol_code", "symbol code must be exactly 6 digits")
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// ValidateOrderRequest checks an order before it reaches the broker. A
// missing order type is treated as cash.
func ValidateOrderRequest(req *models.MOrderRequest) error {
	if err := ValidateSymbolCode(req.SymbolCode); err != nil {
		return err
	}
	if req.Side != models.SideBuy && req.Side != models.SideSell {
		return NewValidationError("side", "side must be buy or sell")
	}
	if req.Quantity <= 0 {
		return NewValidationError("quantity", "quantity must be greater than 0")
	}
	if !req.Price.IsPositive() {
		return NewValidationError("price", "price must be greater than 0")
	}
	if !req.Price.Equal(req.Price.Truncate(0)) {
		return NewValidationError("price", "price must be a whole number of won")
	}
	if req.OrderType == "" {
		req.OrderType = models.OrderTypeCash
	}
	if req.OrderType != models.OrderTypeCash {
		return NewValidationError("order_type", "only cash orders are supported")
	}
	return nil
}

// -----------------------------------------------------------------------------

func ValidateCancelRequest(req *models.MCancelRequest) error {
	if req.OrderID == "" {
		return NewValidationError("order_id", "order id is required")
	}
	if err := ValidateSymbolCode(req.SymbolCode); err != nil {
		return err
	}
	if req.Quantity < 0 {
		return NewValidationError("quantity", "quantity cannot be negative")
	}
	return nil
}

// -----------------------------------------------------------------------------

func ValidateModifyRequest(req *models.MModifyRequest) error {
	if req.OrderID == "" {
		return NewValidationError("order_id", "order id is required")
	}
	if err := ValidateSymbolCode(req.SymbolCode); err != nil {
		return err
	}
	if req.Side != "" && req.Side != models.SideBuy && req.Side != models.SideSell {
		return NewValidationError("side", "side must be buy or sell")
	}
	if req.Quantity <= 0 {
		return NewValidationError("quantity", "quantity must be greater than 0")
	}
	if !req.Price.IsPositive() || !req.Price.Equal(req.Price.Truncate(0)) {
		return NewValidationError("price", "price must be a positive whole number of won")
	}
	return nil
}

// -----------------------------------------------------------------------------

// ValidateDate accepts a calendar date written YYYYMMDD.
func ValidateDate(field, value string) error {
	if _, err := time.Parse("20060102", value); err != nil || len(value) != 8 {
		return NewValidationError(field, field+" must be a date in YYYYMMDD form")
	}
	return nil
}

// -----------------------------------------------------------------------------

// ValidateDateRange requires start <= end; both are YYYYMMDD.
func ValidateDateRange(r models.MDateRange) error {
	if err := ValidateDate("start_date", r.Start); err != nil {
		return err
	}
	if err := ValidateDate("end_date", r.End); err != nil {
		return err
	}
	if r.End < r.Start {
		return NewValidationError("end_date", "end_date is before start_date")
	}
	return nil
}

// -----------------------------------------------------------------------------

func ValidateChartPeriod(period models.ChartPeriod) error {
	switch period {
	case models.ChartDaily, models.ChartWeekly, models.ChartMonthly:
		return nil
	default:
		return NewValidationError("period", "period must be D, W or M")
	}
}
