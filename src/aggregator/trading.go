package aggregator

import (
	"context"
	"sort"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Trading summaries
// -----------------------------------------------------------------------------

// TradingSummaries totals the fills inside rng per day, or per month when
// monthly is set. Periods are returned oldest first.
func (a *Aggregator) TradingSummaries(ctx context.Context, rng models.MDateRange, monthly bool) ([]models.MTradingSummary, error) {
	if err := helpers.ValidateDateRange(rng); err != nil {
		return nil, err
	}

	fills, err := a.Broker.GetFills(ctx, rng)
	if err != nil {
		return nil, err
	}

	period := func(f models.MFill) string {
		day := f.TradeDate
		if day == "" {
			// rows without a date belong to the last day asked for
			day = rng.End
		}
		if monthly {
			return day[:6]
		}
		return day
	}
	return Summarize(fills, period), nil
}

// -----------------------------------------------------------------------------

// DailyTrading returns the fills of one day with their totals.
func (a *Aggregator) DailyTrading(ctx context.Context, date string) (*models.MDailyTrading, error) {
	if err := helpers.ValidateDate("date", date); err != nil {
		return nil, err
	}

	fills, err := a.Broker.GetFills(ctx, models.MDateRange{Start: date, End: date})
	if err != nil {
		return nil, err
	}

	summary := models.MTradingSummary{Period: date}
	if totals := Summarize(fills, func(models.MFill) string { return date }); len(totals) == 1 {
		summary = totals[0]
	}
	return &models.MDailyTrading{Date: date, Summary: summary, Fills: fills}, nil
}

// -----------------------------------------------------------------------------

// Summarize groups fills by period. Profit is sells minus buys minus
// commission and tax; the return rate is relative to the buy amount.
func Summarize(fills []models.MFill, period func(models.MFill) string) []models.MTradingSummary {
	byPeriod := make(map[string]*models.MTradingSummary)
	for _, f := range fills {
		if f.Quantity <= 0 {
			continue
		}
		key := period(f)
		s, ok := byPeriod[key]
		if !ok {
			s = &models.MTradingSummary{Period: key}
			byPeriod[key] = s
		}

		s.TradeCount++
		s.Commission = s.Commission.Add(f.Commission)
		s.Tax = s.Tax.Add(f.Tax)
		if f.Side == models.SideSell {
			s.SellAmount = s.SellAmount.Add(f.Amount())
		} else {
			s.BuyAmount = s.BuyAmount.Add(f.Amount())
		}
	}

	out := make([]models.MTradingSummary, 0, len(byPeriod))
	for _, s := range byPeriod {
		s.ProfitAmount = s.SellAmount.Sub(s.BuyAmount).Sub(s.Commission).Sub(s.Tax)
		if s.BuyAmount.IsPositive() {
			s.ReturnRate = s.ProfitAmount.Div(s.BuyAmount).Mul(decimal.NewFromInt(100)).Round(2)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
