package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	drepo "DipWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

func newStreamServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		for _, f := range frames {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// keep the socket open until the client hangs up
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestReadTickParsesTickerFrame(t *testing.T) {
	srv := newStreamServer(t, []string{
		`{"e":"24hrTicker","E":1700000000123,"s":"BTCUSDT","c":"42000.50","b":"42000.10","a":"42000.90","v":"1234.5"}`,
	})
	defer srv.Close()

	f := NewFeed(WithStreamURL("ws" + strings.TrimPrefix(srv.URL, "http")))
	conn, err := f.Dial(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	tick, err := conn.ReadTick()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if tick.Symbol != "BTCUSDT" || tick.Price != 42000.50 {
		t.Fatalf("tick = %+v", tick)
	}
	if tick.Bid != 42000.10 || tick.Ask != 42000.90 {
		t.Fatalf("bid/ask = %v/%v", tick.Bid, tick.Ask)
	}
	if tick.Timestamp != 1700000000123 {
		t.Fatalf("timestamp = %d", tick.Timestamp)
	}
	if tick.Source != "binance" {
		t.Fatalf("source = %q", tick.Source)
	}
}

func TestReadTickMalformedFrames(t *testing.T) {
	srv := newStreamServer(t, []string{
		`not json at all`,
		`{"e":"ping"}`,
		`{"e":"24hrTicker","s":"BTCUSDT","c":"nope","v":"1"}`,
		`{"e":"24hrTicker","E":1,"s":"BTCUSDT","c":"1.0","v":"2.0"}`,
	})
	defer srv.Close()

	f := NewFeed(WithStreamURL("ws" + strings.TrimPrefix(srv.URL, "http")))
	conn, err := f.Dial(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		if _, err := conn.ReadTick(); !errors.Is(err, drepo.ErrMalformedTick) {
			t.Fatalf("frame %d: err = %v, want malformed", i, err)
		}
	}
	// the stream keeps delivering after malformed frames
	tick, err := conn.ReadTick()
	if err != nil {
		t.Fatalf("read after drops: %v", err)
	}
	if tick.Price != 1.0 || tick.Volume != 2.0 {
		t.Fatalf("tick = %+v", tick)
	}
}
