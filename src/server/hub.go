package server

import (
	"context"
	"encoding/json"
	"errors"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
)

var ErrRelayStopped = errors.New("push relay stopped")

// -----------------------------------------------------------------------------
// Relay (hub pattern)
// -----------------------------------------------------------------------------

// Relay owns the channel registry. Only the Run goroutine touches clients and
// subs; everything else talks to it over unbuffered channels, so a broadcast
// and a later connect are always seen in that order.
type Relay struct {
	Logger *logger.Logger

	clients map[string]*Client
	subs    map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	commands   chan subscription
	broadcast  chan []byte
	quotes     chan quoteMessage
	queries    chan func()
	done       chan struct{}

	observers []interfaces.IPresenceObserver
}

type subscription struct {
	client *Client
	code   string
	on     bool
}

type quoteMessage struct {
	code    string
	payload []byte
}

// -----------------------------------------------------------------------------

func NewRelay(log *logger.Logger) *Relay {
	return &Relay{
		Logger:     log,
		clients:    make(map[string]*Client),
		subs:       make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan subscription),
		broadcast:  make(chan []byte),
		quotes:     make(chan quoteMessage),
		queries:    make(chan func()),
		done:       make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// AddObserver must be called before Run.
func (r *Relay) AddObserver(o interfaces.IPresenceObserver) {
	r.observers = append(r.observers, o)
}

// -----------------------------------------------------------------------------

// Run is the registry loop. It returns when ctx is cancelled, closing every
// remaining channel.
func (r *Relay) Run(ctx context.Context) {
	defer func() {
		close(r.done)
		for id, c := range r.clients {
			delete(r.clients, id)
			close(c.send)
		}
		r.subs = make(map[string]map[*Client]struct{})
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-r.register:
			r.clients[c.id] = c
			r.Logger.Info("channel %s connected (%d open)", c.id, len(r.clients))
			r.deliver(c, r.encode(models.EventStatus, c.id, obj{
				"connected":  true,
				"channel_id": c.id,
				"message":    "connected to the dashboard",
			}))
			r.notify()

		case c := <-r.unregister:
			if r.remove(c) {
				r.Logger.Info("channel %s disconnected (%d open)", c.id, len(r.clients))
				r.notify()
			}

		case cmd := <-r.commands:
			r.handleSubscription(cmd)

		case payload := <-r.broadcast:
			dropped := false
			for _, c := range r.clients {
				if !r.deliver(c, payload) {
					dropped = true
				}
			}
			if dropped {
				r.notify()
			}

		case q := <-r.quotes:
			dropped := false
			for c := range r.subs[q.code] {
				if !r.deliver(c, q.payload) {
					dropped = true
				}
			}
			if dropped {
				r.notify()
			}

		case fn := <-r.queries:
			fn()
		}
	}
}

// -----------------------------------------------------------------------------

func (r *Relay) handleSubscription(cmd subscription) {
	c := cmd.client
	if _, ok := r.clients[c.id]; !ok {
		return
	}

	if err := helpers.ValidateSymbolCode(cmd.code); err != nil {
		r.deliver(c, r.encode(models.EventError, c.id, obj{
			"stock_code": cmd.code,
			"message":    helpers.PublicMessage(err),
		}))
		return
	}

	if cmd.on {
		if r.subs[cmd.code] == nil {
			r.subs[cmd.code] = make(map[*Client]struct{})
		}
		r.subs[cmd.code][c] = struct{}{}
		r.deliver(c, r.encode(models.EventSubscribed, c.id, obj{"stock_code": cmd.code}))
		return
	}

	if set, ok := r.subs[cmd.code]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.subs, cmd.code)
		}
	}
	r.deliver(c, r.encode(models.EventUnsubscribed, c.id, obj{"stock_code": cmd.code}))
}

// -----------------------------------------------------------------------------

// deliver never blocks. A full send buffer drops the channel.
func (r *Relay) deliver(c *Client, payload []byte) bool {
	if payload == nil {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		r.Logger.Warning("channel %s is not keeping up, dropping it", c.id)
		r.remove(c)
		return false
	}
}

// -----------------------------------------------------------------------------

func (r *Relay) remove(c *Client) bool {
	if cur, ok := r.clients[c.id]; !ok || cur != c {
		return false
	}
	delete(r.clients, c.id)
	for code, set := range r.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(r.subs, code)
		}
	}
	close(c.send)
	return true
}

// -----------------------------------------------------------------------------

func (r *Relay) notify() {
	n := len(r.clients)
	for _, o := range r.observers {
		o.ChannelsChanged(n)
	}
}

// -----------------------------------------------------------------------------

func (r *Relay) encode(event, channelID string, data interface{}) []byte {
	msg := models.NewPushMessage(event, data)
	msg.ChannelID = channelID
	b, err := json.Marshal(msg)
	if err != nil {
		r.Logger.Error("failed to encode %s event: %v", event, err)
		return nil
	}
	return b
}

// -----------------------------------------------------------------------------
// Public API (safe from any goroutine)
// -----------------------------------------------------------------------------

// Connect registers c; it receives a status event and nothing sent before.
func (r *Relay) Connect(ctx context.Context, c *Client) error {
	return r.send(ctx, func() bool {
		select {
		case r.register <- c:
			return true
		case <-ctx.Done():
		case <-r.done:
		}
		return false
	})
}

// -----------------------------------------------------------------------------

func (r *Relay) Disconnect(c *Client) {
	select {
	case r.unregister <- c:
	case <-r.done:
	}
}

// -----------------------------------------------------------------------------

func (r *Relay) Subscribe(ctx context.Context, c *Client, code string) error {
	return r.command(ctx, subscription{client: c, code: code, on: true})
}

func (r *Relay) Unsubscribe(ctx context.Context, c *Client, code string) error {
	return r.command(ctx, subscription{client: c, code: code, on: false})
}

func (r *Relay) command(ctx context.Context, s subscription) error {
	return r.send(ctx, func() bool {
		select {
		case r.commands <- s:
			return true
		case <-ctx.Done():
		case <-r.done:
		}
		return false
	})
}

// -----------------------------------------------------------------------------

// Broadcast sends one identical update to every channel connected now.
func (r *Relay) Broadcast(ctx context.Context, view *models.MAccountView) error {
	payload := r.encode(models.EventUpdate, "", view)
	if payload == nil {
		return errors.New("account view could not be encoded")
	}
	return r.send(ctx, func() bool {
		select {
		case r.broadcast <- payload:
			return true
		case <-ctx.Done():
		case <-r.done:
		}
		return false
	})
}

// -----------------------------------------------------------------------------

// PublishQuote reaches only channels subscribed to symbolCode.
func (r *Relay) PublishQuote(ctx context.Context, symbolCode string, quote *models.MQuote) error {
	payload := r.encode(models.EventQuote, "", quote)
	if payload == nil {
		return errors.New("quote could not be encoded")
	}
	return r.send(ctx, func() bool {
		select {
		case r.quotes <- quoteMessage{code: symbolCode, payload: payload}:
			return true
		case <-ctx.Done():
		case <-r.done:
		}
		return false
	})
}

// -----------------------------------------------------------------------------

func (r *Relay) SubscribedSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.query(ctx, func() {
		symbols = make([]string, 0, len(r.subs))
		for code := range r.subs {
			symbols = append(symbols, code)
		}
	})
	return symbols, err
}

// -----------------------------------------------------------------------------

func (r *Relay) ChannelCount(ctx context.Context) (int, error) {
	var n int
	err := r.query(ctx, func() { n = len(r.clients) })
	return n, err
}

// -----------------------------------------------------------------------------

// query runs fn on the registry goroutine and waits for it.
func (r *Relay) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}
	err := r.send(ctx, func() bool {
		select {
		case r.queries <- wrapped:
			return true
		case <-ctx.Done():
		case <-r.done:
		}
		return false
	})
	if err != nil {
		return err
	}
	<-finished
	return nil
}

// -----------------------------------------------------------------------------

func (r *Relay) send(ctx context.Context, try func() bool) error {
	if try() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrRelayStopped
}

// -----------------------------------------------------------------------------

type obj = map[string]interface{}
