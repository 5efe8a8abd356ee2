package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"copytrader/internal/accounts"
	"copytrader/internal/broker"
	"copytrader/internal/engine"
	"copytrader/internal/logger"
	"copytrader/internal/models"
)

// Server is the dashboard control surface: it toggles the synchronization
// loop, serves categorized order/position snapshots, pushes snapshot
// updates over websocket and handles manual cancel/close requests.
type Server struct {
	addr      string
	refresh   time.Duration
	accounts  *accounts.Directory
	gateways  map[string]broker.Gateway
	newEngine func() *engine.Engine
	log       *logger.Logger
	hub       *Hub

	mu        sync.Mutex
	orders    OrdersSnapshot
	positions PositionsSnapshot

	loopMu   sync.Mutex
	baseCtx  context.Context
	running  bool
	stopLoop context.CancelFunc

	upgrader websocket.Upgrader
}

// New builds the server. newEngine is called on every enable so each run of
// the loop starts with fresh dedup and mapping state.
func New(addr string, refresh time.Duration, dir *accounts.Directory, gateways map[string]broker.Gateway, newEngine func() *engine.Engine, log *logger.Logger) *Server {
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Server{
		addr:      addr,
		refresh:   refresh,
		accounts:  dir,
		gateways:  gateways,
		newEngine: newEngine,
		log:       log,
		hub:       NewHub(log),
		orders:    emptyOrdersSnapshot(),
		positions: PositionsSnapshot{Open: []PositionView{}, Closed: []PositionView{}},
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

func (s *Server) logEntry() *logrus.Entry {
	return s.log.WithComponent("dashboard")
}

// Run serves until ctx is cancelled. The snapshot collector runs alongside
// the HTTP listener.
func (s *Server) Run(ctx context.Context) error {
	s.loopMu.Lock()
	s.baseCtx = ctx
	s.loopMu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders", s.handleOrders)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("POST /api/copy-trading/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/copy-trading/status", s.handleStatus)
	mux.HandleFunc("POST /api/orders/cancel", s.handleCancelOrders)
	mux.HandleFunc("POST /api/positions/close", s.handleClosePositions)
	mux.HandleFunc("GET /ws", s.handleWS)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go s.runCollector(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.hub.Close()
	}()

	s.logEntry().WithFields(map[string]interface{}{"addr": s.addr}).Info("Dashboard listening.")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StartLoop enables the synchronization loop if it is not already running.
func (s *Server) StartLoop() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.running {
		return false
	}
	loopCtx, cancel := context.WithCancel(s.baseCtx)
	s.stopLoop = cancel
	s.running = true

	eng := s.newEngine()
	go func() {
		eng.Run(loopCtx)
		s.loopMu.Lock()
		s.running = false
		s.loopMu.Unlock()
	}()
	return true
}

// StopLoop disables the synchronization loop; the current cycle finishes.
func (s *Server) StopLoop() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if !s.running || s.stopLoop == nil {
		return false
	}
	s.stopLoop()
	s.stopLoop = nil
	return true
}

func (s *Server) loopRunning() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.running
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var message string
	if body.Enabled {
		s.StartLoop()
		message = "Copy trading enabled"
	} else {
		s.StopLoop()
		message = "Copy trading disabled"
	}
	s.logEntry().Info(message + ".")
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := "Stopped"
	if s.loopRunning() {
		status = "Running"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.orders
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.positions
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancelOrders(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Orders []struct {
			Name    string `json:"name"`
			OrderID string `json:"order_id"`
		} `json:"orders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Orders == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request format"})
		return
	}

	var messages []string
	for _, item := range body.Orders {
		gw, _, ok := s.gatewayFor(item.Name)
		if !ok {
			messages = append(messages, fmt.Sprintf("Unknown account %s", item.Name))
			continue
		}
		if err := gw.Cancel(r.Context(), item.OrderID); err != nil {
			s.logEntry().WithError(err).WithField("order_id", item.OrderID).Warn("Manual cancellation failed.")
			messages = append(messages, fmt.Sprintf("Failed to cancel order %s: %v", item.OrderID, err))
			continue
		}
		messages = append(messages, fmt.Sprintf("Order %s cancelled", item.OrderID))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"message": messages})
}

func (s *Server) handleClosePositions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Positions []struct {
			Name       string `json:"name"`
			SecurityID string `json:"security_id"`
		} `json:"positions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Positions == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request format"})
		return
	}

	s.mu.Lock()
	open := append([]PositionView(nil), s.positions.Open...)
	s.mu.Unlock()

	var messages []string
	for _, item := range body.Positions {
		gw, _, ok := s.gatewayFor(item.Name)
		if !ok {
			messages = append(messages, fmt.Sprintf("Unknown account %s", item.Name))
			continue
		}
		var pos *PositionView
		for i := range open {
			if open[i].Name == item.Name && open[i].SecurityID == item.SecurityID {
				pos = &open[i]
				break
			}
		}
		if pos == nil {
			messages = append(messages, fmt.Sprintf("Position %s not found", item.SecurityID))
			continue
		}

		req := closeRequest(*pos)
		if _, err := gw.Place(r.Context(), req); err != nil {
			s.logEntry().WithError(err).WithFields(map[string]interface{}{
				"security_id": item.SecurityID,
				"account":     item.Name,
			}).Warn("Manual position close failed.")
			messages = append(messages, fmt.Sprintf("Failed to close position %s: %v", pos.Symbol, err))
			continue
		}
		messages = append(messages, fmt.Sprintf("Position %s closed", pos.Symbol))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"message": messages})
}

// closeRequest builds the market order that flattens an open position.
func closeRequest(pos PositionView) models.OrderRequest {
	side := models.TransactionTypeSell
	if pos.Quantity < 0 {
		side = models.TransactionTypeBuy
	}
	qty := pos.Quantity
	if qty < 0 {
		qty = -qty
	}
	return models.OrderRequest{
		TransactionType: side,
		ExchangeSegment: pos.ExchangeSegment,
		ProductType:     pos.ProductType,
		OrderType:       models.OrderTypeMarket,
		Validity:        "DAY",
		SecurityID:      pos.SecurityID,
		Quantity:        qty,
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logEntry().WithError(err).Warn("Websocket upgrade failed.")
		return
	}
	s.hub.Add(conn)

	// Clients only receive; the read loop just detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Drop(conn)
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
