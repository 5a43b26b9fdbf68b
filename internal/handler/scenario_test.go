package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/matchtalk/internal/auth"
	"github.com/hitoshi/matchtalk/internal/block"
	"github.com/hitoshi/matchtalk/internal/conversation"
	"github.com/hitoshi/matchtalk/internal/like"
	"github.com/hitoshi/matchtalk/internal/match"
	"github.com/hitoshi/matchtalk/internal/message"
	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/notification"
	"github.com/hitoshi/matchtalk/internal/realtime"
	"github.com/hitoshi/matchtalk/internal/repository/memory"
)

const (
	scenarioSecret = "scenario-secret"
	user1          = "aaaaaaaa-0000-4000-8000-000000000001"
	user2          = "aaaaaaaa-0000-4000-8000-000000000002"
)

// engine は本番と同じ配線をメモリストアで組み立てたテスト用のアプリケーション。
type engine struct {
	store  *memory.Store
	hub    *realtime.Hub
	router http.Handler
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := memory.NewStore()
	store.AddUser(model.User{ID: user1, Username: "alice", FirstName: "Alice"})
	store.AddUser(model.User{ID: user2, Username: "bob", FirstName: "Bob"})

	collector := metrics.NewCollector(prometheus.NewRegistry())
	hub := realtime.NewHub()

	notifSvc := notification.NewService(store.Notifications(), store.Users(), hub)
	matchSvc := match.NewService(store.Matches(), collector)
	blockSvc := block.NewService(store.Users(), store.Blocks(), collector)
	likeSvc := like.NewService(store.Users(), store.Likes(), matchSvc, blockSvc, notifSvc, collector)
	msgSvc := message.NewService(store.Messages(), matchSvc, notifSvc, collector,
		message.PageLimits{Default: message.DefaultPageLimit, Max: message.MaxPageLimit})
	convSvc := conversation.NewService(store.Messages())

	router := NewRouter(&RouterDeps{
		Verifier:            auth.NewVerifier(scenarioSecret, ""),
		CORSAllowedOrigin:   "http://localhost:3000",
		Metrics:             collector,
		LikeService:         NewLikeServiceAdapter(likeSvc),
		BlockService:        blockSvc,
		MatchService:        NewMatchServiceAdapter(matchSvc),
		MessageService:      NewMessageServiceAdapter(msgSvc),
		ConversationService: convSvc,
		NotificationService: notifSvc,
		Realtime:            realtime.NewServer(hub, "http://localhost:3000", false),
	})

	return &engine{store: store, hub: hub, router: router}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(scenarioSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func (e *engine) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
}

func TestScenario_LikeMatchMessageRead(t *testing.T) {
	e := newEngine(t)

	// user1 → user2 のいいね。まだマッチしない
	w := e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("like 1→2: status = %d, want 201", w.Code)
	}
	var likeRes likeResultResponse
	decodeInto(t, w, &likeRes)
	if likeRes.IsMatch {
		t.Fatal("like 1→2 must not produce a match")
	}

	// マッチ前のメッセージ送信は403
	w = e.do(t, http.MethodPost, "/api/messages/"+user2, user1, `{"content":"hi"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("send before match: status = %d, want 403", w.Code)
	}

	// user2 → user1 のいいねでマッチ成立
	w = e.do(t, http.MethodPost, "/api/likes/"+user1, user2, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("like 2→1: status = %d, want 201", w.Code)
	}
	decodeInto(t, w, &likeRes)
	if !likeRes.IsMatch {
		t.Fatal("like 2→1 must produce a match")
	}
	if n := e.store.MatchCount(); n != 1 {
		t.Fatalf("match rows = %d, want 1", n)
	}

	// 同じ送信が今度は201
	w = e.do(t, http.MethodPost, "/api/messages/"+user2, user1, `{"content":"hi"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("send after match: status = %d, want 201", w.Code)
	}

	// 送っただけでは未読のまま
	w = e.do(t, http.MethodGet, "/api/messages/conversations", user2, "")
	var convs []conversationResponse
	decodeInto(t, w, &convs)
	if len(convs) != 1 || convs[0].OtherUserID != user1 || convs[0].UnreadCount != 1 {
		t.Fatalf("conversations before read = %+v, want one with unread 1", convs)
	}

	// user1がスレッドを見ても、自分が送ったメッセージは既読にならない
	w = e.do(t, http.MethodGet, "/api/messages/"+user2, user1, "")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch by sender: status = %d, want 200", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/messages/conversations", user2, "")
	decodeInto(t, w, &convs)
	if convs[0].UnreadCount != 1 {
		t.Fatalf("unread after sender fetch = %d, want 1", convs[0].UnreadCount)
	}

	// user2がスレッドを取得すると既読になる
	w = e.do(t, http.MethodGet, "/api/messages/"+user1, user2, "")
	var thread []messageResponse
	decodeInto(t, w, &thread)
	if len(thread) != 1 || thread[0].Content != "hi" {
		t.Fatalf("thread = %+v", thread)
	}
	w = e.do(t, http.MethodGet, "/api/messages/conversations", user2, "")
	decodeInto(t, w, &convs)
	if convs[0].UnreadCount != 0 {
		t.Errorf("unread after receiver fetch = %d, want 0", convs[0].UnreadCount)
	}

	// 既読化は冪等
	w = e.do(t, http.MethodPut, "/api/messages/"+user1+"/read", user2, "")
	var readRes markReadResponse
	decodeInto(t, w, &readRes)
	if readRes.Count != 0 {
		t.Errorf("second mark read count = %d, want 0", readRes.Count)
	}

	// マッチ通知が両者に届いている
	w = e.do(t, http.MethodGet, "/api/notifications", user1, "")
	var notifs []notificationResponse
	decodeInto(t, w, &notifs)
	if len(notifs) != 1 || notifs[0].Type != "match" {
		t.Errorf("user1 notifications = %+v, want one match", notifs)
	}
}

func TestScenario_UnlikeDissolvesMatch(t *testing.T) {
	e := newEngine(t)
	e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	e.do(t, http.MethodPost, "/api/likes/"+user1, user2, "")

	w := e.do(t, http.MethodDelete, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusOK {
		t.Fatalf("unlike: status = %d, want 200", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/matches/"+user2, user1, "")
	var status matchStatusResponse
	decodeInto(t, w, &status)
	if status.IsMatch {
		t.Error("match must be dissolved after unlike")
	}

	w = e.do(t, http.MethodPost, "/api/messages/"+user2, user1, `{"content":"still there?"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("send after unlike: status = %d, want 403", w.Code)
	}

	// 逆方向のいいねは残っている
	w = e.do(t, http.MethodGet, "/api/likes/received", user1, "")
	var received []likeResponse
	decodeInto(t, w, &received)
	if len(received) != 1 || received[0].User.ID != user2 {
		t.Errorf("received likes = %+v, want one from user2", received)
	}

	w = e.do(t, http.MethodDelete, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second unlike: status = %d, want 404", w.Code)
	}
}

func TestScenario_BlockDissolvesMatchAndRefusesLike(t *testing.T) {
	e := newEngine(t)
	e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	e.do(t, http.MethodPost, "/api/likes/"+user1, user2, "")
	e.do(t, http.MethodPost, "/api/messages/"+user2, user1, `{"content":"hi"}`)

	w := e.do(t, http.MethodPost, "/api/blocks/"+user1, user2, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("block: status = %d, want 201", w.Code)
	}
	var blockRes blockResultResponse
	decodeInto(t, w, &blockRes)
	if !blockRes.Blocked || !blockRes.MatchDissolved {
		t.Errorf("block response = %+v, want blocked and dissolved", blockRes)
	}

	w = e.do(t, http.MethodGet, "/api/matches/"+user1, user2, "")
	var status matchStatusResponse
	decodeInto(t, w, &status)
	if status.IsMatch {
		t.Error("match must be dissolved after block")
	}

	// ブロックされた側からもいいねできない
	w = e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("like after block: status = %d, want 400", w.Code)
	}
	var errBody struct {
		Kind string `json:"kind"`
		Code string `json:"code"`
	}
	decodeInto(t, w, &errBody)
	if errBody.Kind != string(model.KindValidation) || errBody.Code != model.ErrCodeUserBlocked {
		t.Errorf("error = %+v, want VALIDATION/%s", errBody, model.ErrCodeUserBlocked)
	}

	w = e.do(t, http.MethodPost, "/api/messages/"+user2, user1, `{"content":"hello?"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("send after block: status = %d, want 403", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/messages/"+user2, user1, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("thread after block: status = %d, want 403", w.Code)
	}

	w = e.do(t, http.MethodDelete, "/api/blocks/"+user1, user2, "")
	if w.Code != http.StatusOK {
		t.Fatalf("unblock: status = %d, want 200", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusCreated {
		t.Errorf("like after unblock: status = %d, want 201", w.Code)
	}
}

func TestScenario_SelfAndDuplicateLike(t *testing.T) {
	e := newEngine(t)

	w := e.do(t, http.MethodPost, "/api/likes/"+user1, user1, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self like: status = %d, want 400", w.Code)
	}
	var errBody struct {
		Kind string `json:"kind"`
	}
	decodeInto(t, w, &errBody)
	if errBody.Kind != string(model.KindSelfReference) {
		t.Errorf("kind = %q, want %q", errBody.Kind, model.KindSelfReference)
	}

	e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	w = e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate like: status = %d, want 400", w.Code)
	}
	decodeInto(t, w, &errBody)
	if errBody.Kind != string(model.KindDuplicate) {
		t.Errorf("kind = %q, want %q", errBody.Kind, model.KindDuplicate)
	}
	if n := e.store.LikeCount(); n != 1 {
		t.Errorf("like rows = %d, want 1", n)
	}

	w = e.do(t, http.MethodPost, "/api/likes/aaaaaaaa-0000-4000-8000-0000000000ff", user1, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("like unknown user: status = %d, want 404", w.Code)
	}
}

func TestScenario_RealtimeMatchEvent(t *testing.T) {
	e := newEngine(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + tokenFor(t, user2)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for e.hub.ConnectionCount(user2) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.do(t, http.MethodPost, "/api/likes/"+user1, user2, "")
	e.do(t, http.MethodPost, "/api/likes/"+user2, user1, "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type    string                  `json:"type"`
		Payload notification.MatchEvent `json:"payload"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if event.Type != string(realtime.EventMatch) {
		t.Errorf("event type = %q, want match", event.Type)
	}
	if event.Payload.UserID != user1 || event.Payload.Username != "alice" {
		t.Errorf("payload = %+v, want alice", event.Payload)
	}
}
