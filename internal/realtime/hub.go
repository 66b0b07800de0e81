// Package realtime pushes task board events to admins connected over WebSocket.
package realtime

import (
	"log"
	"sync"
)

// sendQueue is how many events may wait for one slow connection before it is dropped.
const sendQueue = 16

type client struct {
	conn *Conn
	send chan any
}

// Hub fans events out to every connection of a company. Each connection has
// its own writer goroutine, so Publish never waits on a socket.
type Hub struct {
	mu        sync.RWMutex
	companies map[int64]map[*Conn]*client
}

func NewHub() *Hub {
	return &Hub{companies: make(map[int64]map[*Conn]*client)}
}

func (h *Hub) Register(companyID int64, conn *Conn) {
	c := &client{conn: conn, send: make(chan any, sendQueue)}

	h.mu.Lock()
	if h.companies[companyID] == nil {
		h.companies[companyID] = make(map[*Conn]*client)
	}
	h.companies[companyID][conn] = c
	h.mu.Unlock()

	go h.writeLoop(companyID, c)
}

func (h *Hub) writeLoop(companyID int64, c *client) {
	for v := range c.send {
		if err := c.conn.WriteJSON(v); err != nil {
			log.Printf("[ws][write][err] company=%d: %v", companyID, err)
			h.Unregister(companyID, c.conn)
			return
		}
	}
}

// detach removes conn from the hub and stops its writer. Reports whether it was registered.
func (h *Hub) detach(companyID int64, conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.companies[companyID]
	c, ok := conns[conn]
	if !ok {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.companies, companyID)
	}
	close(c.send)
	return true
}

func (h *Hub) Unregister(companyID int64, conn *Conn) {
	h.detach(companyID, conn)
	_ = conn.Close()
}

// Subscribers returns how many connections listen to the company.
func (h *Hub) Subscribers(companyID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.companies[companyID])
}

// Publish queues v for every connection of the company and returns at once.
// A connection whose queue is full is dropped.
func (h *Hub) Publish(companyID int64, v any) {
	var slow []*Conn

	h.mu.RLock()
	for conn, c := range h.companies[companyID] {
		select {
		case c.send <- v:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		log.Printf("[ws][publish][drop] company=%d: send queue full", companyID)
		if h.detach(companyID, conn) {
			go conn.Close()
		}
	}
}
