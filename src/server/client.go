package server

import (
	"context"
	"encoding/json"
	"time"

	"kiwoom-dashboard/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // commands are tiny
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one browser push channel.
type Client struct {
	id    string
	relay *Relay
	conn  *websocket.Conn
	send  chan []byte
}

// -----------------------------------------------------------------------------

func NewClient(relay *Relay, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:    uuid.NewString(),
		relay: relay,
		conn:  conn,
		send:  make(chan []byte, buffer),
	}
}

// -----------------------------------------------------------------------------

func (c *Client) ID() string {
	return c.id
}

// -----------------------------------------------------------------------------
// readPump - handles incoming commands from the browser
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.relay.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.relay.Logger.Info("WebSocket error on %s: %v", c.id, err)
			}
			return
		}
		if !c.handleCommand(ctx, message) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// handleCommand returns false when the connection should be closed.
func (c *Client) handleCommand(ctx context.Context, message []byte) bool {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.relay.Logger.Info("Failed to parse command from %s: %v, disconnecting", c.id, err)
		return false
	}

	var err error
	switch cmd.Event {
	case models.CommandSubscribe:
		err = c.relay.Subscribe(ctx, c, cmd.StockCode)
	case models.CommandUnsubscribe:
		err = c.relay.Unsubscribe(ctx, c, cmd.StockCode)
	default:
		c.relay.Logger.Debug("ignoring unknown event %q from %s", cmd.Event, c.id)
	}
	return err == nil
}

// -----------------------------------------------------------------------------
// writePump - sends messages to the browser
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// relay closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.relay.Logger.Info("Write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
