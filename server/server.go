package server

import (
	"net/http"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/tliron/commonlog"

	"github.com/lcrh/turingsoup/driver"
)

var log = commonlog.GetLogger("turingsoup.server")

// Server serves one driver's state over HTTP and WebSocket.
type Server struct {
	driver *driver.Driver
	mux    *http.ServeMux

	mu         sync.Mutex
	lastSample driver.Sample
	haveSample bool

	stream *streamHub
}

// New wires a Server around d: it registers /config, /stats, /snapshot,
// and /stream, and subscribes to the driver's tick and sample callbacks.
func New(d *driver.Driver) *Server {
	s := &Server{
		driver: d,
		mux:    http.NewServeMux(),
		stream: newStreamHub(),
	}

	s.mux.HandleFunc("/config", s.handleConfig)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/stream", s.stream.handle)

	d.OnTick(func(info driver.TickInfo) {
		s.stream.broadcast(info)
	})
	d.OnSample(func(sample driver.Sample) {
		s.mu.Lock()
		s.lastSample = sample
		s.haveSample = true
		s.mu.Unlock()
	})

	return s
}

// ListenAndServe starts the HTTP server on addr, blocking until it
// returns an error.
func (s *Server) ListenAndServe(addr string) error {
	log.Infof("turingsoup server listening on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

// Handler returns the server's http.Handler, for tests or for embedding
// behind another mux.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.driver.Config()); err != nil {
		log.Errorf("encode /config response: %v", err)
	}
}

// statsResponse is the /stats payload: current epoch, EMA'd category
// rates, and the most recent complexity/diversity sample, if any.
type statsResponse struct {
	Epoch     float64         `json:"epoch"`
	EMA       driver.Counters `json:"ema"`
	HasSample bool            `json:"has_sample"`
	Sample    driver.Sample   `json:"sample,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sample := s.lastSample
	haveSample := s.haveSample
	s.mu.Unlock()

	resp := statsResponse{
		Epoch:     s.driver.Epoch(),
		EMA:       s.driver.EMA(),
		HasSample: haveSample,
		Sample:    sample,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("encode /stats response: %v", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}
	length, err := strconv.Atoi(r.URL.Query().Get("length"))
	if err != nil || length < 0 {
		http.Error(w, "invalid length", http.StatusBadRequest)
		return
	}
	if offset+length > s.driver.SoupLen() {
		http.Error(w, "offset+length exceeds soup size", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(s.driver.Snapshot(offset, length))
}
