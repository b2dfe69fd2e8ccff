// Package dashboard streams sampling progress to browsers over WebSocket.
package dashboard

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alphacore/internal/env"
)

// Message types sent to clients.
const (
	MsgTypeStatus   = "status"
	MsgTypeEpisode  = "episode"
	MsgTypeProgress = "progress"
	MsgTypeNewBest  = "new_best"
)

const writeWait = 5 * time.Second

// Message is the envelope every client receives.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	Time int64  `json:"time"`
}

type EpisodeData struct {
	ID      string  `json:"id"`
	Expr    string  `json:"expr"`
	Tokens  int     `json:"tokens"`
	Reward  float64 `json:"reward"`
	Outcome string  `json:"outcome"`
}

// ProgressData carries run totals. BestIC is nil until something scored.
type ProgressData struct {
	Episodes   int64    `json:"episodes"`
	Elites     int      `json:"elites"`
	BestIC     *float64 `json:"best_ic"`
	RatePerSec float64  `json:"rate_per_sec"`
}

type NewBestData struct {
	Expr string  `json:"expr"`
	IC   float64 `json:"ic"`
}

// Hub fans messages out to connected clients. All writes happen on the
// Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	broadcast  chan Message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	count      atomic.Int64
	dropped    atomic.Int64
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run processes registrations and broadcasts until ctx is canceled, then
// closes every client. Run must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			_ = c.Close()
			delete(h.clients, c)
		}
		h.count.Store(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			welcome := Message{
				Type: MsgTypeStatus,
				Data: map[string]string{"status": "running", "msg": "dashboard connected"},
				Time: time.Now().Unix(),
			}
			if err := h.write(c, welcome); err != nil {
				h.drop(c)
			}

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				if err := h.write(c, msg); err != nil {
					h.logger.Debug("websocket write failed", zap.Error(err))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) write(c *websocket.Conn, msg Message) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(msg)
}

func (h *Hub) drop(c *websocket.Conn) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	_ = c.Close()
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped reports how many messages were discarded because the queue was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Broadcast queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msgType string, data any) {
	msg := Message{Type: msgType, Data: data, Time: time.Now().Unix()}
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
	}
}

// ObserveEpisode broadcasts a finished episode. It has the env.Observer
// signature.
func (h *Hub) ObserveEpisode(s env.Summary) {
	h.Broadcast(MsgTypeEpisode, EpisodeData{
		ID:      s.ID,
		Expr:    s.Expr,
		Tokens:  len(s.Tokens),
		Reward:  s.Reward,
		Outcome: s.Outcome.String(),
	})
}

func (h *Hub) SendProgress(episodes int64, elites int, bestIC, rate float64) {
	d := ProgressData{Episodes: episodes, Elites: elites, RatePerSec: rate}
	if !math.IsNaN(bestIC) && !math.IsInf(bestIC, 0) {
		d.BestIC = &bestIC
	}
	h.Broadcast(MsgTypeProgress, d)
}

func (h *Hub) SendNewBest(expr string, ic float64) {
	h.Broadcast(MsgTypeNewBest, NewBestData{Expr: expr, IC: ic})
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.register <- ws:
	case <-h.done:
		_ = ws.Close()
		return
	}

	// Clients only send pings; the read loop exists to notice disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case h.unregister <- ws:
	case <-h.done:
	}
}

// Handler routes /ws to the hub and /metrics to the given handler when it
// is non-nil.
func (h *Hub) Handler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("alphacore dashboard: connect to /ws\n"))
	})
	return corsMiddleware(mux)
}

// Serve runs the hub and an HTTP server on addr until ctx is canceled.
func (h *Hub) Serve(ctx context.Context, addr string, metrics http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		h.logger.Info("dashboard listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
