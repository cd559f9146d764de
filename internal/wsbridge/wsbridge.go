// Package wsbridge is the WebSocket observer surface: a
// broadcast.EventSink that fans domain events out to connected
// clients as JSON frames, grounded on AMOORCHING-ATMX's
// internal/trade/ws_hub.go register/unregister/broadcast hub.
package wsbridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/metrics"
)

// Message is the JSON frame sent to WebSocket observers for one
// domain event.
type Message struct {
	Type           string `json:"type"`
	ProductID      string `json:"productId,omitempty"`
	TransactionID  string `json:"transactionId,omitempty"`
	BuyOrderID     string `json:"buyOrderId,omitempty"`
	SellOrderID    string `json:"sellOrderId,omitempty"`
	BuyerOutletID  string `json:"buyerOutletId,omitempty"`
	SellerOutletID string `json:"sellerOutletId,omitempty"`
	Quantity       int64  `json:"quantity,omitempty"`
	PricePerUnit   string `json:"pricePerUnit,omitempty"`
	OutletID       string `json:"outletId,omitempty"`
	Revenue        string `json:"revenue,omitempty"`
	Message        string `json:"message,omitempty"`
	Source         string `json:"source,omitempty"`
}

func toMessage(evt domain.Event) Message {
	switch evt.Kind {
	case domain.EventTradeExecuted:
		t := evt.Trade
		return Message{
			Type: "trade_executed", ProductID: t.ProductID, TransactionID: t.TransactionID,
			BuyOrderID: t.BuyOrderID, SellOrderID: t.SellOrderID,
			BuyerOutletID: t.BuyerOutletID, SellerOutletID: t.SellerOutletID,
			Quantity: t.Quantity, PricePerUnit: t.PricePerUnit.String(),
		}
	case domain.EventBookUpdated:
		return Message{Type: "book_updated", ProductID: evt.BookProductID}
	case domain.EventCustomerPurchased:
		s := evt.Sale
		return Message{
			Type: "customer_purchased", ProductID: s.ProductID, OutletID: s.OutletID,
			Quantity: s.Quantity, Revenue: s.Revenue.String(),
		}
	case domain.EventError:
		return Message{Type: "error", Message: evt.ErrorMessage, Source: evt.ErrorSource}
	default:
		return Message{Type: "unknown"}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Hub manages WebSocket connections and implements broadcast.EventSink:
// every domain event fanned in via OnEvent is re-broadcast as JSON to
// every connected client.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a Hub. Call Run in a goroutine before serving
// HandleWS.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run drives the hub's event loop. It takes no context and never
// returns; the caller launches it once as a goroutine for the process
// lifetime.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			h.logger.Info("ws client connected", slog.Int("total", n))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// OnEvent implements broadcast.EventSink.
func (h *Hub) OnEvent(evt domain.Event) {
	data, err := json.Marshal(toMessage(evt))
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if the hub's own buffer is full; the Broadcaster's
		// per-sink queue already absorbs bursts ahead of this point.
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and
// registers it with the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
