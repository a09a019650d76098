// Package ws streams engine events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/ledger"
)

const (
	maxMessageSize = 512 * 1024
	readWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
)

// Event is the wire envelope pushed to every subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TransferEvent is published after every applied transfer.
type TransferEvent struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Amount         uint64 `json:"amount"`
	Fee            uint64 `json:"fee"`
	Classification string `json:"classification"`
}

// SwapEvent is published after a successful fee swap-back.
type SwapEvent struct {
	Sold     uint64 `json:"sold"`
	Proceeds uint64 `json:"proceeds"`
}

// SwapFailedEvent is published when a triggered swap-back fails.
type SwapFailedEvent struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Publisher fans engine events out to websocket connections. Slow
// subscribers whose send queue fills are disconnected rather than
// allowed to stall the engine path.
type Publisher struct {
	queueSize int

	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewPublisher creates a publisher listening on addr once Start is
// called. queueSize bounds each subscriber's pending event backlog.
func NewPublisher(addr string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 100
	}
	p := &Publisher{
		queueSize: queueSize,
		clients:   make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	p.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           p,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return p
}

// Start blocks serving until the listener fails or Shutdown is called.
func (p *Publisher) Start() error {
	err := p.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown disconnects all subscribers and closes the listener.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	for c := range p.clients {
		c.close()
	}
	p.clients = make(map[*client]struct{})
	p.mu.Unlock()

	return p.httpSrv.Shutdown(ctx)
}

// ClientCount reports the number of active subscribers.
func (p *Publisher) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, p.queueSize),
		done: make(chan struct{}),
	}

	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()

	go p.readLoop(c)
	go p.writeLoop(c)
}

// readLoop drains inbound frames to service the pong handler. The
// stream is publish-only; client payloads are discarded.
func (p *Publisher) readLoop(c *client) {
	defer p.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read failed: %v", err)
			}
			return
		}
	}
}

func (p *Publisher) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer p.remove(c)

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func (p *Publisher) remove(c *client) {
	c.close()
	p.mu.Lock()
	delete(p.clients, c)
	p.mu.Unlock()
}

func (p *Publisher) broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("websocket event marshal failed: %v", err)
		return
	}

	p.mu.RLock()
	clients := make([]*client, 0, len(p.clients))
	for c := range p.clients {
		clients = append(clients, c)
	}
	p.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("websocket subscriber too slow, dropping connection")
			p.remove(c)
		}
	}
}

// TransferApplied implements engine.EventSink.
func (p *Publisher) TransferApplied(from, to ledger.Address, amt, fee amount.Amount, class engine.Classification) {
	p.broadcast("transfer", TransferEvent{
		From:           string(from),
		To:             string(to),
		Amount:         amt.Units(),
		Fee:            fee.Units(),
		Classification: class.String(),
	})
}

// SwapBackExecuted implements engine.EventSink.
func (p *Publisher) SwapBackExecuted(sold, proceeds amount.Amount) {
	p.broadcast("swap_back", SwapEvent{
		Sold:     sold.Units(),
		Proceeds: proceeds.Units(),
	})
}

// SwapBackFailed implements engine.EventSink.
func (p *Publisher) SwapBackFailed(res engine.Result) {
	p.broadcast("swap_back_failed", SwapFailedEvent{
		Result:  res.String(),
		Message: res.Message(),
	})
}
