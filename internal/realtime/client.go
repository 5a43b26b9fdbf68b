package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client は1本のWebSocket接続を表す。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
	once   sync.Once
}

func newClient(h *Hub, userID string, conn *websocket.Conn) *Client {
	return &Client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBufferSize)}
}

// enqueue はフレームを送信キューに積む。キューが満杯か切断済みならfalseを返す。
func (c *Client) enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// readPump はクライアントからのフレームを読み捨て、pongで読み取り期限を延長する。
// 読み取りエラーで接続を閉じる。
func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
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

// writePump は送信キューのフレームとpingを書き込む。
func (c *Client) writePump() {
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

// Close はHubから登録を外し、送信キューを閉じる。複数回呼んでも安全。
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}
