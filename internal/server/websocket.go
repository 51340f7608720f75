package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tandemflow/tandem/pkg/api"
	"github.com/tandemflow/tandem/pkg/log"
)

// Client represents a WebSocket client connection receiving step
// results as live runs progress
type Client struct {
	server  *Server
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closing sync.Once
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	s.registerWebSocket(client)

	go client.writePump()
	go client.readPump()
}

// BroadcastStep fans one step result out to every connected socket.
// Slow consumers that cannot keep up have frames dropped rather than
// stalling the run
func (s *Server) BroadcastStep(runID string, res *api.StepResult) {
	frame, err := json.Marshal(&api.StepEvent{
		Type:      api.EventTypeStepResult,
		RunID:     runID,
		Step:      res,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		slog.Error("Failed to marshal step event",
			log.RunID(runID),
			log.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.sockets {
		select {
		case c.send <- frame:
		default:
		}
	}
}

// Close shuts the connection down and stops its pumps
func (c *Client) Close() {
	c.closing.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.server.unregisterWebSocket(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Inbound frames are only control traffic; discard until the peer
	// goes away
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(
				websocket.TextMessage, frame,
			); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(
				websocket.PingMessage, nil,
			); err != nil {
				return
			}
		}
	}
}
