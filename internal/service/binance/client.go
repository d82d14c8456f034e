package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

const (
	DefaultStreamURL = "wss://stream.binance.com:9443/ws"

	defaultPingInterval = 3 * time.Minute
	defaultReadLimit    = 1 << 20
)

// Feed dials per-symbol Binance ticker streams. One Dial opens one
// WebSocket on the <symbol>@ticker stream.
type Feed struct {
	streamURL    string
	pingInterval time.Duration
	dialer       *websocket.Dialer
}

type FeedOption func(*Feed)

func WithStreamURL(u string) FeedOption {
	return func(f *Feed) { f.streamURL = u }
}

func WithPingInterval(d time.Duration) FeedOption {
	return func(f *Feed) { f.pingInterval = d }
}

func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{
		streamURL:    DefaultStreamURL,
		pingInterval: defaultPingInterval,
		dialer:       websocket.DefaultDialer,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Dial opens the ticker stream for one symbol.
func (f *Feed) Dial(ctx context.Context, symbol string) (drepo.TickConn, error) {
	u := fmt.Sprintf("%s/%s@ticker", f.streamURL, strings.ToLower(symbol))
	ws, _, err := f.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("binance dial %s: %w", symbol, err)
	}
	ws.SetReadLimit(defaultReadLimit)

	c := &Conn{
		symbol: symbol,
		ws:     ws,
		done:   make(chan struct{}),
	}
	go c.pingLoop(f.pingInterval)
	return c, nil
}

// Conn is a single-symbol ticker stream.
type Conn struct {
	symbol    string
	ws        *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// wsTicker is the 24h ticker frame. Binance sends numbers as strings.
type wsTicker struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"`
	Last      string `json:"c"`
	Bid       string `json:"b"`
	Ask       string `json:"a"`
	Volume    string `json:"v"` // 24h base asset volume
}

// ReadTick blocks for the next ticker frame. Frames that do not parse into a
// tick return ErrMalformedTick so the caller can drop them and keep reading.
func (c *Conn) ReadTick() (*models.Tick, error) {
	_, b, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("binance read %s: %w", c.symbol, err)
	}

	var m wsTicker
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %s", drepo.ErrMalformedTick, err)
	}
	if m.Event != "24hrTicker" || m.Symbol == "" {
		return nil, fmt.Errorf("%w: unexpected frame %q", drepo.ErrMalformedTick, m.Event)
	}

	price, err := strconv.ParseFloat(m.Last, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", drepo.ErrMalformedTick, m.Last)
	}
	volume, err := strconv.ParseFloat(m.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: volume %q", drepo.ErrMalformedTick, m.Volume)
	}
	bid, _ := strconv.ParseFloat(m.Bid, 64)
	ask, _ := strconv.ParseFloat(m.Ask, 64)

	return &models.Tick{
		Symbol:    m.Symbol,
		Price:     price,
		Volume:    volume,
		Bid:       bid,
		Ask:       ask,
		Timestamp: m.EventTime,
		Source:    "binance",
	}, nil
}

func (c *Conn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			_ = c.ws.WriteControl(websocket.PongMessage, nil, deadline)
		}
	}
}

// Close shuts the stream down. A blocked ReadTick returns with an error.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
	})
	return err
}
