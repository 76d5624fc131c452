package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChartPulse/internal/domain/models"
	applogger "ChartPulse/pkg/logger"
)

// Client implements a BarStream over the provider's WebSocket feed. The
// read loop reconnects on its own after transient failures; the consumer
// only ever sees bars and advisory errors.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.l.Info("bar feed connected", applogger.String("url", c.websocketURL))
	return nil
}

// Subscribe registers interest in the configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.l.Info("bar feed subscribed", applogger.Int("symbols", len(c.symbols)))
	return nil
}

// wire frames: trade ticks batched by the provider.
type feedTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms epoch
}

type feedMessage struct {
	Type string     `json:"type"`
	Data []feedTick `json:"data"`
}

// Read streams minute bars and advisory errors. Ticks are rolled into
// one-minute OHLCV bars locally; a bar is emitted when a tick for a later
// minute arrives for its symbol.
func (c *Client) Read(ctx context.Context) (<-chan models.Bar, <-chan error) {
	bars := make(chan models.Bar, 1024)
	errs := make(chan error, 8)

	go c.pingLoop(ctx)
	go c.readLoop(ctx, bars, errs)

	return bars, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context, bars chan<- models.Bar, errs chan<- error) {
	defer close(bars)
	defer close(errs)

	agg := newBarAggregator()
	for {
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if !c.reconnect(ctx, errs) {
				return
			}
			continue
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			select {
			case errs <- fmt.Errorf("feed read: %w", err):
			default:
			}
			if !c.reconnect(ctx, errs) {
				return
			}
			continue
		}

		var m feedMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
			continue // non-trade frames carry nothing we need
		}
		for _, tick := range m.Data {
			if closed, ok := agg.add(tick); ok {
				select {
				case bars <- closed:
				default:
					// drop on backpressure; the batch pipeline recomputes
					// from the store anyway
				}
			}
		}
	}
}

// reconnect retries with a fixed delay until it succeeds or the context
// ends. Returns false when the loop should exit.
func (c *Client) reconnect(ctx context.Context, errs chan<- error) bool {
	_ = c.Close()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.reconnectDelay):
		}
		if err := c.Connect(ctx); err != nil {
			select {
			case errs <- err:
			default:
			}
			continue
		}
		if err := c.Subscribe(ctx); err != nil {
			select {
			case errs <- err:
			default:
			}
			continue
		}
		return true
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status for health checks.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// barAggregator folds ticks into per-symbol one-minute OHLCV bars.
type barAggregator struct {
	open map[string]*models.Bar
}

func newBarAggregator() *barAggregator {
	return &barAggregator{open: make(map[string]*models.Bar)}
}

// add folds one tick in and returns the previous bar for the symbol when
// the tick opens a new minute.
func (a *barAggregator) add(t feedTick) (models.Bar, bool) {
	if t.S == "" || t.T == 0 {
		return models.Bar{}, false
	}
	minute := time.UnixMilli(t.T).UTC().Truncate(time.Minute)

	cur, ok := a.open[t.S]
	if !ok {
		a.open[t.S] = &models.Bar{
			Symbol: t.S, Timestamp: minute, Source: "feed",
			Open: t.P, High: t.P, Low: t.P, Close: t.P, Volume: t.V,
		}
		return models.Bar{}, false
	}

	if minute.After(cur.Timestamp) {
		closed := *cur
		a.open[t.S] = &models.Bar{
			Symbol: t.S, Timestamp: minute, Source: "feed",
			Open: t.P, High: t.P, Low: t.P, Close: t.P, Volume: t.V,
		}
		return closed, true
	}

	// same minute (or a late tick): fold into the open bar
	if t.P > cur.High {
		cur.High = t.P
	}
	if t.P < cur.Low {
		cur.Low = t.P
	}
	cur.Close = t.P
	cur.Volume += t.V
	return models.Bar{}, false
}
