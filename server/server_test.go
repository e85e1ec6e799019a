package server

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lcrh/turingsoup/config"
	"github.com/lcrh/turingsoup/driver"
	"github.com/lcrh/turingsoup/pool"
	"github.com/lcrh/turingsoup/soup"
)

func newTestServer(t *testing.T) (*Server, *driver.Driver) {
	t.Helper()
	cfg := config.Default()
	cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize = 256, 256, 64
	cfg.Batch.PairsPerStep = 4
	cfg = cfg.Resolve()

	s := soup.Init(cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize, rand.New(rand.NewPCG(1, 1)))
	d := driver.New(cfg, s, pool.New(2), rand.New(rand.NewPCG(2, 2)))
	d.Start()

	return New(d), d
}

func TestHandleConfig(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/config")
	if err != nil {
		t.Fatalf("GET /config: %v", err)
	}
	defer resp.Body.Close()

	var got config.Config
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode /config: %v", err)
	}
	if got.Soup.RegionSize != 64 {
		t.Errorf("RegionSize = %d, want 64", got.Soup.RegionSize)
	}
}

func TestHandleStats(t *testing.T) {
	srv, d := newTestServer(t)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()

	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode /stats: %v", err)
	}
	if got.Epoch <= 0 {
		t.Errorf("Epoch = %v, want > 0 after a tick", got.Epoch)
	}
}

func TestHandleSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/snapshot?offset=0&length=16")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	if n != 16 {
		t.Errorf("snapshot length = %d, want 16", n)
	}
}

func TestHandleSnapshot_RejectsOutOfRange(t *testing.T) {
	srv, d := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/snapshot?offset=0&length=" + strconv.Itoa(d.SoupLen()+1))
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStream_ReceivesTickFrames(t *testing.T) {
	srv, d := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	go func() {
		_ = d.Tick(context.Background())
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var frame tickFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Epoch <= 0 {
		t.Errorf("frame.Epoch = %v, want > 0", frame.Epoch)
	}
}

