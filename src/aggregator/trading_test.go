package aggregator

import (
	"context"
	"testing"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(date string, side models.OrderSide, price, quantity int64, fee, tax int64) models.MFill {
	return models.MFill{
		OrderID:    "0000001",
		SymbolCode: "005930",
		Side:       side,
		Price:      decimal.NewFromInt(price),
		Quantity:   quantity,
		TradeDate:  date,
		Commission: decimal.NewFromInt(fee),
		Tax:        decimal.NewFromInt(tax),
	}
}

func TestSummarizeByDay(t *testing.T) {
	fills := []models.MFill{
		fill("20250314", models.SideBuy, 70000, 10, 100, 0),
		fill("20250313", models.SideBuy, 10000, 1, 10, 0),
		fill("20250314", models.SideSell, 72000, 10, 100, 1300),
		fill("20250314", models.SideSell, 72000, 0, 0, 0),
	}

	out := Summarize(fills, func(f models.MFill) string { return f.TradeDate })
	require.Len(t, out, 2)
	assert.Equal(t, "20250313", out[0].Period)

	day := out[1]
	assert.Equal(t, "20250314", day.Period)
	assert.Equal(t, 2, day.TradeCount)
	assert.True(t, day.BuyAmount.Equal(decimal.NewFromInt(700000)))
	assert.True(t, day.SellAmount.Equal(decimal.NewFromInt(720000)))
	assert.True(t, day.ProfitAmount.Equal(decimal.NewFromInt(18500)))
	assert.Equal(t, "2.64", day.ReturnRate.String())
}

func TestTradingSummariesByMonth(t *testing.T) {
	broker := &fakeBroker{fills: []models.MFill{
		fill("20250228", models.SideBuy, 1000, 1, 0, 0),
		fill("20250303", models.SideBuy, 1000, 2, 0, 0),
		fill("", models.SideSell, 1500, 2, 0, 0),
	}}
	a := newTestAggregator(broker, &fakeRelay{}, nil)

	rng := models.MDateRange{Start: "20250201", End: "20250314"}
	out, err := a.TradingSummaries(context.Background(), rng, true)
	require.NoError(t, err)
	assert.Equal(t, rng, broker.fillsRange)

	require.Len(t, out, 2)
	assert.Equal(t, "202502", out[0].Period)
	assert.Equal(t, "202503", out[1].Period)
	assert.Equal(t, 2, out[1].TradeCount)
	assert.True(t, out[1].ProfitAmount.Equal(decimal.NewFromInt(1000)))

	_, err = a.TradingSummaries(context.Background(), models.MDateRange{Start: "20250314", End: "20250201"}, false)
	var ve *helpers.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDailyTrading(t *testing.T) {
	broker := &fakeBroker{fills: []models.MFill{
		fill("", models.SideBuy, 70000, 1, 15, 0),
	}}
	a := newTestAggregator(broker, &fakeRelay{}, nil)

	detail, err := a.DailyTrading(context.Background(), "20250313")
	require.NoError(t, err)
	assert.Equal(t, models.MDateRange{Start: "20250313", End: "20250313"}, broker.fillsRange)
	assert.Equal(t, "20250313", detail.Summary.Period)
	assert.Equal(t, 1, detail.Summary.TradeCount)
	assert.Len(t, detail.Fills, 1)

	broker.fills = nil
	detail, err = a.DailyTrading(context.Background(), "20250312")
	require.NoError(t, err)
	assert.Equal(t, 0, detail.Summary.TradeCount)
	assert.Equal(t, "20250312", detail.Summary.Period)
}
