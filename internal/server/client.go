package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client pumps one websocket connection. All inbound events are
// dispatched synchronously from Read, so events from a single
// connection are processed in arrival order.
type Client struct {
	connId string
	conn   *websocket.Conn
	server *ChatServer
	router *SessionRouter
	log    *log.Logger
	send   chan *ServerEvent

	stop        chan struct{}
	stopOnce    sync.Once
	cleanupOnce sync.Once
}

func NewClient(connId string, conn *websocket.Conn, cs *ChatServer, rt *SessionRouter, l *log.Logger) *Client {
	return &Client{
		connId: connId,
		conn:   conn,
		server: cs,
		router: rt,
		log:    l,
		send:   make(chan *ServerEvent, 256),
		stop:   make(chan struct{}),
	}
}

func (c *Client) ConnId() string {
	return c.connId
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write pump for %q exiting", c.connId)
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read pump for %q exiting", c.connId)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Printf("dropping malformed event from %q: %v", c.connId, err)
			continue
		}

		c.router.Dispatch(c.connId, &ev)
	}
}

// cleanup runs the disconnect path exactly once per physical
// connection, no matter how the pumps exit.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.server.DeregisterClient(c)
		c.router.HandleDisconnect(c.connId)
		c.stopClient()
	})
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Printf("send buffer full for connection %q, dropping event", c.connId)
		return false
	}

	return true
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}
