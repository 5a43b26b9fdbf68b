// Package realtime はユーザー単位のWebSocketプッシュ配信を提供する。
// 配信はベストエフォートで、送信側の操作を失敗させない。
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// EventType はプッシュするイベントの種別。
type EventType string

const (
	// EventMatch はマッチ成立イベント。
	EventMatch EventType = "match"
	// EventMessage は新着メッセージイベント。
	EventMessage EventType = "message"
	// EventRead は既読イベント。
	EventRead EventType = "read"
)

// Event はクライアントへ送るJSONフレーム。
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 64
)

// Hub はユーザーIDごとの接続集合を管理する。
// 同一ユーザーの複数端末にはすべて同じイベントを配信する。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub は空のHubを生成する。
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.userID] == nil {
		h.rooms[c.userID] = make(map[*Client]struct{})
	}
	h.rooms[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := h.rooms[c.userID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
}

// ConnectionCount は指定ユーザーの接続数を返す。
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Publish は指定ユーザーの全接続へイベントを送る。
// 送信バッファが詰まった接続は遅いクライアントとみなして切断する。
func (h *Hub) Publish(userID string, eventType EventType, payload any) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		slog.Warn("リアルタイムイベントのエンコードに失敗しました",
			slog.String("user_id", userID),
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[userID]))
	for c := range h.rooms[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(b) {
			slog.Warn("送信が追いつかない接続を切断します",
				slog.String("user_id", userID),
			)
			go c.Close()
		}
	}
}
