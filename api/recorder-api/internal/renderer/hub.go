// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_renderer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const (
	hubClientBuffer = 64
	hubWriteTimeout = 5 * time.Second
)

var hubUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts events to every connected websocket client. A client that
// cannot keep up loses events rather than slowing the others.
type Hub struct {
	logger  commons.Logger
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

func NewHub(logger commons.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[*hubClient]struct{})}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Errorf("events-hub: unable to marshal %s: %v", e.Type, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warnw("events-hub: client buffer full, dropping event", "type", e.Type)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := hubUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("events-hub: websocket upgrade failed: %v", err)
		return
	}
	c := &hubClient{conn: conn, send: make(chan []byte, hubClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugf("events-hub: client connected from %s", r.RemoteAddr)

	go h.writeLoop(c)
	// reads only detect the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) writeLoop(c *hubClient) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debugf("events-hub: write failed: %v", err)
			c.conn.Close()
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
