// Package server exposes the verifier over HTTP: a synchronous
// POST /validate endpoint and a /events websocket that pushes each
// verification outcome to connected operators, grounded on the
// teacher's graphql/httprouter-based RPC surface (httprouter + rs/cors)
// and its gorilla/websocket event feed.
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/tos-network/uptane-targets/log"
	"github.com/tos-network/uptane-targets/targets"
	"github.com/tos-network/uptane-targets/transport"
)

// Verifier is the subset of *targets.Context usage the server needs,
// narrowed so handlers stay testable against a fake.
type Verifier interface {
	Init(cfg targets.Config)
	Process() targets.Result
	Release()
	OutputLength() uint32
	OutputVersion() uint32
}

// Recorder is satisfied by *telemetry.Publisher; kept as a narrow
// interface here so the server never imports the telemetry package
// directly (SPEC_FULL.md §4.10: telemetry is purely observational and
// sits outside the verification path).
type Recorder interface {
	RecordOutcome(ecuID, hwID, result string, elapsed time.Duration, success bool)
}

type Outcome struct {
	Result  string `json:"result"`
	Length  uint32 `json:"length,omitempty"`
	Version uint32 `json:"version,omitempty"`
}

// Server wires one HTTP mux, a websocket upgrader, and a broadcast hub
// that fans out each /validate outcome to every connected /events
// client.
type Server struct {
	newContext func() Verifier
	cfgFor     func(r *http.Request) (targets.Config, error)
	recorder   Recorder

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
}

func New(newContext func() Verifier, cfgFor func(r *http.Request) (targets.Config, error)) *Server {
	return &Server{
		newContext: newContext,
		cfgFor:     cfgFor,
		clients:    make(map[*websocket.Conn]struct{}),
	}
}

// SetRecorder wires an optional outcome publisher (e.g.
// telemetry.NewPublisher); nil disables publishing.
func (s *Server) SetRecorder(r Recorder) {
	s.recorder = r
}

func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/validate", s.handleValidate)
	router.GET("/events", s.handleEvents)
	return cors.AllowAll().Handler(router)
}

// handleValidate accepts either a manifest posted inline in the
// request body, or a transport URI (file://, s3://, azblob://) naming
// where to fetch one from, per SPEC_FULL.md §4.9's "body: a manifest,
// or an S3/Azure URI to fetch".
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg, err := s.cfgFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	src, closer, err := resolveBody(r, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closer()
	cfg.Source = src

	start := time.Now()
	ctx := s.newContext()
	ctx.Init(cfg)
	res := ctx.Process()
	elapsed := time.Since(start)
	defer ctx.Release()

	outcome := Outcome{Result: res.String()}
	if res.Success() {
		outcome.Length = ctx.OutputLength()
		outcome.Version = ctx.OutputVersion()
	}
	s.broadcast(outcome)

	if s.recorder != nil {
		s.recorder.RecordOutcome(string(cfg.ECUID), string(cfg.HardwareID), res.String(), elapsed, res.Success())
	}

	w.Header().Set("Content-Type", "application/json")
	if !res.Success() {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	_ = json.NewEncoder(w).Encode(outcome)
}

func resolveBody(r *http.Request, body []byte) (targets.Source, func() error, error) {
	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "file://"),
		strings.HasPrefix(trimmed, "s3://"),
		strings.HasPrefix(trimmed, "azblob://"):
		return transport.Open(r.Context(), trimmed)
	default:
		return transport.NewBytesSource(bytes.TrimSpace(body)), func() error { return nil }, nil
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Root().Error("server: websocket upgrade failed", "err", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if err := c.WriteJSON(o); err != nil {
			c.Close()
			delete(s.clients, c)
		}
	}
}
