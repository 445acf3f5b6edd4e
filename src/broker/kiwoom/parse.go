package kiwoom

import (
	"strconv"
	"strings"
	"time"

	"kiwoom-dashboard/src/models"

	"github.com/shopspring/decimal"
)

const timestampLayout = "20060102150405"

// Kiwoom reports times in Korea Standard Time.
var seoul = loadSeoul()

func loadSeoul() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// -----------------------------------------------------------------------------

// num parses a broker numeric string such as "000001000000", "+70000" or
// "-1.25". Blank and malformed values become zero.
func num(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// -----------------------------------------------------------------------------

func qty(s string) int64 {
	return num(s).IntPart()
}

// -----------------------------------------------------------------------------

// price drops the direction sign Kiwoom puts in front of prices.
func price(s string) decimal.Decimal {
	return num(s).Abs()
}

// -----------------------------------------------------------------------------

func symbol(code string) string {
	return strings.TrimPrefix(strings.TrimSpace(code), "A")
}

// -----------------------------------------------------------------------------

func side(label string) models.OrderSide {
	switch {
	case strings.Contains(label, "매수"), strings.Contains(label, "+"):
		return models.SideBuy
	case strings.Contains(label, "매도"), strings.Contains(label, "-"):
		return models.SideSell
	default:
		return models.OrderSide(label)
	}
}

// -----------------------------------------------------------------------------

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, seoul)
}

func formatTimestamp(t time.Time) string {
	return t.In(seoul).Format(timestampLayout)
}

// -----------------------------------------------------------------------------

// Today returns the current KST date as YYYYMMDD.
func Today(now time.Time) string {
	return now.In(seoul).Format("20060102")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
