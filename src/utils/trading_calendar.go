package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading days using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar maps a broker exchange code to its MIC calendar. Both KRX and
// NXT orders follow the Korea Exchange holiday schedule.
func GetCalendar(exchange string) *TradingCalendar {
	mic := "xkrx"
	switch strings.ToUpper(exchange) {
	case "KRX", "NXT", "":
		mic = "xkrx"
	default:
		mic = strings.ToLower(exchange)
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:00-15:30 KST).", mic)
		return &TradingCalendar{Fallback: true, Timezone: seoul()}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// FallbackCalendar ignores holidays and uses regular KRX hours.
func FallbackCalendar() *TradingCalendar {
	return &TradingCalendar{Fallback: true, Timezone: seoul()}
}

// -----------------------------------------------------------------------------

func seoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		// 09:00 - 15:30 KST
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60 && minutes < 15*60+30
	}

	return tc.Calendar.IsOpen(t)
}
