package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"

	"github.com/solar3s/padlink/bridge"
	"github.com/solar3s/padlink/display"
	"github.com/solar3s/padlink/history"
	"github.com/solar3s/padlink/link"

	_ "net/http/pprof"
)

type ServerConfig struct {
	Enabled           bool
	ListenAddr        string
	Verbose           bool
	WebsocketInterval util.Duration
	HistoryLimit      int // default number of entries served by /history
}

var DefaultServerConfig = ServerConfig{
	Enabled:           true,
	ListenAddr:        "localhost:3636",
	WebsocketInterval: util.Duration(time.Second),
	HistoryLimit:      50,
}

// Things the status server reports on. Any of them may be nil.
type (
	LinkSource interface {
		Snapshot() link.Snapshot
	}
	BridgeSource interface {
		Stats() bridge.Stats
	}
	HistorySource interface {
		Recent(n int) ([]history.Entry, error)
	}
)

// Snapshot is the node status served on /snapshot and /websocket.
type Snapshot struct {
	Time    time.Time
	Version string
	Mode    Mode
	Link    link.Snapshot
	Bridge  bridge.Stats
	Widgets map[display.Widget]string `json:",omitempty"`
}

type Server struct {
	Config  *Config
	Link    LinkSource
	Bridge  BridgeSource
	History HistorySource
	Widgets *display.Memory

	// OnReset is called by POST /link/reset, it should clear a link that
	// gave up reconnecting.
	OnReset func() error

	version    string
	router     *mux.Router
	wsUpgrader *websocket.Upgrader
}

func NewServer(version string, cfg *Config) *Server {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	srv := &Server{
		Config:  cfg,
		version: version,
		wsUpgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	verbose := cfg.Web.Verbose
	srv.router = mux.NewRouter()

	// pprof handlers
	srv.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	// shh
	srv.router.Handle("/favicon.ico", http.HandlerFunc(NilHandler))

	srv.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	srv.router.Handle("/websocket",
		Logger(http.HandlerFunc(srv.Websocket), "ws-snapshot", verbose)).
		Methods("GET", "HEAD")
	srv.router.Handle("/snapshot",
		Logger(http.HandlerFunc(srv.SnapshotHandler), "snapshot", verbose)).
		Methods("GET", "HEAD")
	srv.router.Handle("/config",
		Logger(http.HandlerFunc(srv.ConfigHandler), "config", verbose)).
		Methods("GET", "HEAD")
	srv.router.Handle("/history",
		Logger(http.HandlerFunc(srv.HistoryHandler), "history", verbose)).
		Methods("GET", "HEAD")
	srv.router.Handle("/link/reset",
		Logger(http.HandlerFunc(srv.ResetHandler), "reset", verbose)).
		Methods("POST")
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on Config.Web.ListenAddr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Handler:     s.router,
		Addr:        s.Config.Web.ListenAddr,
		ReadTimeout: 4 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpServer.Shutdown(sctx)
	}()
	log.Info().Str("addr", s.Config.Web.ListenAddr).Msg("status server listening")
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Snapshot gathers the current status of the node.
func (s *Server) Snapshot() Snapshot {
	snap := Snapshot{
		Time:    time.Now(),
		Version: s.version,
		Mode:    s.Config.Mode,
	}
	if s.Link != nil {
		snap.Link = s.Link.Snapshot()
	}
	if s.Bridge != nil {
		snap.Bridge = s.Bridge.Stats()
	}
	if s.Widgets != nil {
		snap.Widgets = s.Widgets.Snapshot()
	}
	return snap
}

// Websocket pushes a Snapshot every WebsocketInterval, or every ?poll=
// duration, until the client goes away.
func (s *Server) Websocket(w http.ResponseWriter, r *http.Request) {
	var interval = time.Duration(s.Config.Web.WebsocketInterval)
	if v, ok := r.URL.Query()["poll"]; ok {
		if d, err := time.ParseDuration(v[0]); err == nil && d > 0 {
			interval = d
		}
	}
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("error subscribing to websocket")
		return
	}
	log.Debug().Str("remote", conn.RemoteAddr().String()).Dur("poll", interval).Msg("websocket subscription")

	go func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if err := conn.WriteJSON(s.Snapshot()); err != nil {
				log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("websocket closed")
				return
			}
			<-time.After(interval)
		}
	}(conn)
}

func (s *Server) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Snapshot())
}

func (s *Server) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Config)
}

// HistoryHandler serves the newest journal entries, ?n= overrides the count.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "history is disabled on this node", http.StatusNotFound)
		return
	}
	n := s.Config.Web.HistoryLimit
	if v := r.URL.Query().Get("n"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			http.Error(w, fmt.Sprintf("invalid n: %q", v), http.StatusBadRequest)
			return
		}
		n = i
	}
	entries, err := s.History.Recent(n)
	if err != nil {
		log.Error().Err(err).Msg("reading history")
		http.Error(w, "error reading history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (s *Server) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if s.OnReset == nil {
		http.Error(w, "link reset unavailable", http.StatusNotImplemented)
		return
	}
	if err := s.OnReset(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Write([]byte("link reset"))
}
