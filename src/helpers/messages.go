package helpers

import (
	"fmt"
	"regexp"
)

const CodeTokenInvalid = "8005"

var friendlyMessages = map[string]string{
	// session
	"RC4010": "The mock server is not open today. Orders are accepted on trading days (weekdays 09:00-15:30) only.",
	"RC4011": "The real-time quote service is temporarily suspended. Please try again later.",
	"RC4012": "API call limit exceeded. Please try again later.",
	"8005":   "The access token is invalid or expired. Please log in again.",

	// orders
	"1501": "Invalid order. Check the symbol code, quantity and price.",
	"1502": "Invalid order quantity. Enter at least one share.",
	"1503": "Invalid order price.",
	"1504": "This API is not supported.",
	"1505": "Orders are accepted during trading hours (09:00-15:30) only.",
	"1506": "Not enough shares held for this order.",
	"1507": "Not enough cash for this order.",
	"1508": "The order was rejected by the broker.",

	// account
	"1511": "A required field is missing.",
	"1512": "Invalid account number.",
	"1513": "Account information is unavailable. Please try again later.",

	// symbols
	"1521": "Unknown symbol code.",
	"1522": "Symbol information is unavailable. Please try again later.",
	"1523": "Trading in this symbol is suspended.",

	// system
	"2000": "A system error occurred. Please try again later.",
	"2001": "Network problem while contacting the broker.",
	"2002": "The broker server is temporarily unavailable. Please try again later.",
}

var (
	rcCodeInMessage = regexp.MustCompile(`\b(RC\d{4})\b`)
	codeInMessage   = regexp.MustCompile(`^\s*\[(\d{4})\b`)
)

// -----------------------------------------------------------------------------

// FriendlyMessage maps a broker error code to a user-facing message.
func FriendlyMessage(code, brokerMessage string) string {
	if msg, ok := friendlyMessages[code]; ok {
		return msg
	}
	if brokerMessage != "" {
		return brokerMessage
	}
	return fmt.Sprintf("An error occurred. (code: %s)", code)
}

// -----------------------------------------------------------------------------

// ExtractCode finds an error code like "RC4010" anywhere in a broker message,
// or a leading bracketed code like "[1501"; it returns "" when there is none.
// RC codes win over the generic code Kiwoom prefixes them with.
func ExtractCode(message string) string {
	if m := rcCodeInMessage.FindStringSubmatch(message); len(m) == 2 {
		return m[1]
	}
	m := codeInMessage.FindStringSubmatch(message)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
