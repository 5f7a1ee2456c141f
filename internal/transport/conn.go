package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/pagebridge/pagebridge/internal/monitoring"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second

	maxMessageSize = 4 << 20
)

// Conn wraps a websocket connection with envelope framing. Reads must
// stay on one goroutine; writes are serialized internally so any
// goroutine may send.
type Conn struct {
	ws      *websocket.Conn
	metrics *monitoring.Metrics

	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

// NewConn wraps an upgraded websocket connection. metrics may be nil.
func NewConn(ws *websocket.Conn, metrics *monitoring.Metrics) *Conn {
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &Conn{
		ws:      ws,
		metrics: metrics,
		closed:  make(chan struct{}),
	}
	go c.pinger()
	if metrics != nil {
		metrics.WSConnections.Inc()
	}
	return c
}

// Read blocks for the next envelope.
func (c *Conn) Read() (Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if c.metrics != nil {
		c.metrics.WSMessages.WithLabelValues(env.Type, "in").Inc()
	}
	return env, nil
}

// Write sends an envelope.
func (c *Conn) Write(env Envelope) error {
	data, err := sonic.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.WSMessages.WithLabelValues(env.Type, "out").Inc()
	}
	return nil
}

// WriteError sends an error frame, ignoring write failures.
func (c *Conn) WriteError(id, message string) {
	_ = c.Write(ErrorEnvelope(id, message))
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.ws.Close()
		if c.metrics != nil {
			c.metrics.WSConnections.Dec()
		}
	})
	return err
}

func (c *Conn) pinger() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
