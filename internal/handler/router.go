package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	ExposeErrorDetail bool

	// 監視
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// ドメイン
	LikeService         LikeServiceInterface
	BlockService        BlockServiceInterface
	MatchService        MatchServiceInterface
	MessageService      MessageServiceInterface
	ConversationService ConversationServiceInterface
	NotificationService NotificationServiceInterface
	Realtime            RealtimeServer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → CORS → SecurityHeaders → Auth → RateLimit(General)
//
// /health と /metrics は認証の外に配置する。RateLimiterがnilの場合はレート制限を行わない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	errs := ErrorResponder{ExposeDetail: deps.ExposeErrorDetail}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware(deps.ExposeErrorDetail))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	healthHandler := NewHealthHandler(deps.HealthChecker)
	likeHandler := NewLikeHandler(deps.LikeService, errs)
	blockHandler := NewBlockHandler(deps.BlockService, errs)
	matchHandler := NewMatchHandler(deps.MatchService, errs)
	messageHandler := NewMessageHandler(deps.MessageService, deps.ConversationService, errs)
	notificationHandler := NewNotificationHandler(deps.NotificationService, errs)
	wsHandler := NewWSHandler(deps.Realtime)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier))
		likeLimit := passThrough
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			likeLimit = deps.RateLimiter.LikeMiddleware()
		}

		// いいね
		r.Route("/likes", func(r chi.Router) {
			r.Get("/given", likeHandler.ListGiven)
			r.Get("/received", likeHandler.ListReceived)

			// いいね作成・取り消しは専用のレート制限を追加
			r.With(likeLimit).Post("/{userId}", likeHandler.Like)
			r.With(likeLimit).Delete("/{userId}", likeHandler.Unlike)
		})

		// ブロック
		r.Route("/blocks", func(r chi.Router) {
			r.With(likeLimit).Post("/{userId}", blockHandler.Block)
			r.Delete("/{userId}", blockHandler.Unblock)
		})

		// マッチ
		r.Route("/matches", func(r chi.Router) {
			r.Get("/", matchHandler.ListMatches)
			r.Get("/{userId}", matchHandler.Status)
		})

		// メッセージ
		r.Route("/messages", func(r chi.Router) {
			r.Get("/conversations", messageHandler.ListConversations)
			r.Get("/{userId}", messageHandler.FetchThread)
			r.Post("/{userId}", messageHandler.Send)
			r.Put("/{userId}/read", messageHandler.MarkRead)
		})

		r.Get("/notifications", notificationHandler.List)
		r.Get("/ws", wsHandler.Connect)
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
