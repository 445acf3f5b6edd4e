package models

import "time"

// -----------------------------------------------------------------------------
// Push channel events
// -----------------------------------------------------------------------------

const (
	EventStatus       = "status"
	EventUpdate       = "update"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventQuote        = "quote"
	EventError        = "error"
)

// MPushMessage is the envelope of every server to browser message.
type MPushMessage struct {
	Event     string      `json:"event"`
	ChannelID string      `json:"channel_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

func NewPushMessage(event string, data interface{}) *MPushMessage {
	return &MPushMessage{Event: event, Data: data, Timestamp: time.Now().Unix()}
}

// -----------------------------------------------------------------------------
// Client commands
// -----------------------------------------------------------------------------

const (
	CommandSubscribe   = "subscribe_stock"
	CommandUnsubscribe = "unsubscribe_stock"
)

type MClientCommand struct {
	Event     string `json:"event"`
	StockCode string `json:"stock_code"`
}
