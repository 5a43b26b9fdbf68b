package realtime

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Server は認証済みユーザーの接続をWebSocketへアップグレードする。
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer はServerを生成する。
// Originヘッダーを持つ（ブラウザからの）接続は allowedOrigin と完全一致した場合のみ受け付ける。
// allowAnyOrigin は開発環境用で、trueの場合はOriginを検査しない。
// allowedOriginが空でallowAnyOriginがfalseの場合、ブラウザからの接続はすべて拒否する。
func NewServer(hub *Hub, allowedOrigin string, allowAnyOrigin bool) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), allowedOrigin, allowAnyOrigin)
			},
		},
	}
}

// originAllowed はOriginヘッダーの値が接続を許可されるかを返す。
// Originを送らないクライアント（ネイティブアプリ、CLI）はトークン認証のみで許可する。
func originAllowed(origin, allowedOrigin string, allowAny bool) bool {
	switch {
	case origin == "":
		return true
	case allowAny:
		return true
	case allowedOrigin == "":
		return false
	default:
		return origin == allowedOrigin
	}
}

// Serve はuserIDの接続としてアップグレードし、読み書きのゴルーチンを起動する。
// アップグレードに失敗した場合、レスポンスはUpgraderが書き込み済み。
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}
	c := newClient(s.hub, userID, conn)
	s.hub.register(c)
	go c.writePump()
	go c.readPump()
	return nil
}
