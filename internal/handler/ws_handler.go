package handler

import (
	"log/slog"
	"net/http"
)

// RealtimeServer は認証済みユーザーの接続をリアルタイム配信に登録するインターフェース。
// realtime.Serverが実装する。
type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// WSHandler はWebSocket接続のHTTPハンドラー。
type WSHandler struct {
	server RealtimeServer
}

// NewWSHandler はWSHandlerを生成する。
func NewWSHandler(server RealtimeServer) *WSHandler {
	return &WSHandler{server: server}
}

// Connect はWebSocketにアップグレードし、ユーザー宛のイベント配信を開始する。
// GET /api/ws
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// アップグレード失敗時のレスポンスはUpgraderが書き込む
	if err := h.server.Serve(w, r, userID); err != nil {
		slog.Warn("websocket connection rejected",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
