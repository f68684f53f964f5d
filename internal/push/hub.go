package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

type client struct {
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

type broadcast struct {
	channel string
	data    []byte
}

// Hub keeps the dashboard sockets of one API instance, grouped by channel.
type Hub struct {
	clients    map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan broadcast
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan broadcast, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithField("component", "hub"),
	}
}

// Run owns the client registry until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = map[string]map[*client]bool{}
			return
		case c := <-h.register:
			if h.clients[c.channel] == nil {
				h.clients[c.channel] = make(map[*client]bool)
			}
			h.clients[c.channel][c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c.channel][c]; ok {
				delete(h.clients[c.channel], c)
				close(c.send)
				if len(h.clients[c.channel]) == 0 {
					delete(h.clients, c.channel)
				}
			}
		case b := <-h.broadcast:
			for c := range h.clients[b.channel] {
				select {
				case c.send <- b.data:
				default:
					// slow consumer; it will catch up on its next poll
					delete(h.clients[b.channel], c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues data for every socket on channel.
func (h *Hub) Broadcast(channel string, data []byte) {
	select {
	case h.broadcast <- broadcast{channel: channel, data: data}:
	case <-h.done:
	}
}

// Listen feeds the hub from the Redis push:* pattern until ctx is done.
func (h *Hub) Listen(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.PSubscribe(ctx, redisx.ChannelPushPattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			h.Broadcast(redisx.ChannelFromPush(m.Channel), []byte(m.Payload))
		}
	}
}

// Serve upgrades the request and subscribes the socket to channel. The
// caller has already checked that the actor may read channel.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	c := &client{channel: channel, conn: conn, send: make(chan []byte, sendBuffer)}
	hello, _ := json.Marshal(map[string]string{"event": "subscribed", "channel": channel})
	c.send <- hello

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump only watches for close and pong frames; dashboards never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.WithError(err).Debug("ws write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
