package utils

import (
	"time"

	"kiwoom-dashboard/src/logger"
)

// MarketClock answers calendar questions for the configured exchange.
type MarketClock struct {
	Calendar *TradingCalendar
	Logger   *logger.Logger
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketClock(exchange string, l *logger.Logger) *MarketClock {
	cal := GetCalendar(exchange)
	if cal.Fallback {
		l.Warning("MarketClock: no calendar for %s, using weekday fallback", exchange)
	} else {
		l.Info("MarketClock: using %s calendar", exchange)
	}
	return &MarketClock{Calendar: cal, Logger: l, now: time.Now}
}

// -----------------------------------------------------------------------------

// NewMarketClockWith builds a clock over an explicit calendar and time source.
func NewMarketClockWith(cal *TradingCalendar, now func() time.Time, l *logger.Logger) *MarketClock {
	if now == nil {
		now = time.Now
	}
	return &MarketClock{Calendar: cal, Logger: l, now: now}
}

// -----------------------------------------------------------------------------

// IsMarketOpen reports whether regular trading is in session right now.
func (mc *MarketClock) IsMarketOpen() bool {
	return mc.Calendar.IsOpenOnMinute(mc.now())
}

// -----------------------------------------------------------------------------

func (mc *MarketClock) IsTradingDay() bool {
	return mc.Calendar.IsTradingDay(mc.now())
}

// -----------------------------------------------------------------------------

// Today is the exchange-local date formatted YYYYMMDD.
func (mc *MarketClock) Today() string {
	return mc.now().In(mc.Calendar.Timezone).Format("20060102")
}

// -----------------------------------------------------------------------------

// DaysAgo is the exchange-local date n calendar days before today.
func (mc *MarketClock) DaysAgo(n int) string {
	return mc.now().In(mc.Calendar.Timezone).AddDate(0, 0, -n).Format("20060102")
}

// -----------------------------------------------------------------------------

func (mc *MarketClock) Now() time.Time {
	return mc.now()
}
