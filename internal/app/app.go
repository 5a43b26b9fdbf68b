package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/matchtalk/internal/auth"
	"github.com/hitoshi/matchtalk/internal/block"
	"github.com/hitoshi/matchtalk/internal/config"
	"github.com/hitoshi/matchtalk/internal/conversation"
	"github.com/hitoshi/matchtalk/internal/database"
	"github.com/hitoshi/matchtalk/internal/handler"
	"github.com/hitoshi/matchtalk/internal/like"
	"github.com/hitoshi/matchtalk/internal/logger"
	"github.com/hitoshi/matchtalk/internal/match"
	"github.com/hitoshi/matchtalk/internal/message"
	"github.com/hitoshi/matchtalk/internal/metrics"
	"github.com/hitoshi/matchtalk/internal/middleware"
	"github.com/hitoshi/matchtalk/internal/notification"
	"github.com/hitoshi/matchtalk/internal/realtime"
	"github.com/hitoshi/matchtalk/internal/repository"
	"github.com/hitoshi/matchtalk/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if !cmd.RequiresConfig() {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("app_env", cfg.AppEnv),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// newMetricsRegistry はアプリケーション用のPrometheusレジストリを生成する。
// Goランタイムとプロセスのコレクターも登録する。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	likeRepo := repository.NewPostgresLikeRepo(db)
	matchRepo := repository.NewPostgresMatchRepo(db)
	blockRepo := repository.NewPostgresBlockRepo(db)
	msgRepo := repository.NewPostgresMessageRepo(db)
	notifRepo := repository.NewPostgresNotificationRepo(db)

	// 3. メトリクスとリアルタイム配信の初期化
	reg := newMetricsRegistry()
	collector := metrics.NewCollector(reg)
	hub := realtime.NewHub()

	// 4. ドメインサービスの初期化
	notifService := notification.NewService(notifRepo, userRepo, hub)
	matchService := match.NewService(matchRepo, collector)
	blockService := block.NewService(userRepo, blockRepo, collector)
	likeService := like.NewService(userRepo, likeRepo, matchService, blockService, notifService, collector)
	msgService := message.NewService(
		msgRepo, matchService, notifService, collector,
		message.PageLimits{Default: cfg.ThreadDefaultLimit, Max: cfg.ThreadMaxLimit},
	)
	convService := conversation.NewService(msgRepo)

	// 5. レートリミッターの構築（configはreq/min単位）
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLike),
	)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Verifier:          auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		ExposeErrorDetail: cfg.IsDevelopment(),
		HealthChecker:     db,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),

		LikeService:         handler.NewLikeServiceAdapter(likeService),
		BlockService:        blockService,
		MatchService:        handler.NewMatchServiceAdapter(matchService),
		MessageService:      handler.NewMessageServiceAdapter(msgService),
		ConversationService: convService,
		NotificationService: notifService,
		Realtime:            realtime.NewServer(hub, cfg.CORSAllowedOrigin, cfg.IsDevelopment()),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	// WebSocket接続を切らないようWriteTimeoutは設定しない。
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、既読通知のクリーンアップジョブを定期実行する。
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	notifRepo := repository.NewPostgresNotificationRepo(db)
	cleanupJob := cleanup.NewCleanupJob(notifRepo, slog.Default(), cfg.NotificationRetentionDays)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cleanupJob.RetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
