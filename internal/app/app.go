// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
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

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/backend"
	"github.com/hitoshi/portal/internal/config"
	"github.com/hitoshi/portal/internal/connectivity"
	"github.com/hitoshi/portal/internal/database"
	"github.com/hitoshi/portal/internal/handler"
	"github.com/hitoshi/portal/internal/logger"
	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/normalize"
	"github.com/hitoshi/portal/internal/security"
	"github.com/hitoshi/portal/internal/validation"
	"github.com/hitoshi/portal/internal/worker/cleanup"
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

	// 3. LOG_LEVELを反映して再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
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
		slog.String("base_url", cfg.BaseURL),
		slog.String("storage", cfg.StorageDriver),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandProbe:
		return runProbe(w, cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// ストレージ媒体を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. ストレージ媒体
	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 3. 接続状態
	monitor := connectivity.NewMonitor(connectivity.DefaultMonitorConfig())
	defer monitor.Stop()
	probe := connectivity.NewProbe(cfg.BackendURL, cfg.ProbeTimeout, mc, log)

	// 4. アカウント操作
	backendClient := backend.NewClient(
		cfg.BackendURL,
		&http.Client{Timeout: cfg.BackendTimeout},
		mc, log,
	)
	accountService := auth.NewService(
		backendClient,
		monitor,
		normalize.NewNormalizer(normalize.EmailMarkerPolicy(cfg.AdminEmailMarker)),
		validation.New(),
		security.NewFieldSanitizer(),
		mc, log,
		auth.ServiceConfig{LoginTimeout: cfg.LoginTimeout},
	)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.LoginRateLimiterConfig(cfg.RateLimitLogin))
	defer rateLimiter.Stop()

	views, err := handler.NewViews()
	if err != nil {
		return fmt.Errorf("failed to load views: %w", err)
	}

	deps := &handler.RouterDeps{
		Medium: store.medium,
		ClientContext: middleware.ClientContextConfig{
			MaxAge: cfg.ClientMaxAge,
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            log,

		AccountService: accountService,
		Connectivity:   handler.NewConnectivityAdapter(probe, monitor),

		HealthChecker: store.health,
		Metrics:       mc,
		Gatherer:      reg,

		Views: views,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
			slog.String("backend_url", cfg.BackendURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// writeTimeout は1リクエストで発生しうる最長のバックエンド呼び出しに余裕を加えた書き込み期限を返す。
// プロフィール更新はPUTと再取得の2回をBackendTimeoutの範囲で順に呼び出す。
func writeTimeout(cfg *config.Config) time.Duration {
	longest := cfg.LoginTimeout
	if d := 2 * cfg.BackendTimeout; d > longest {
		longest = d
	}
	return longest + 15*time.Second
}

// runWorker はワーカーモードで起動する。
// 放置されたブラウザコンテキストをCLEANUP_INTERVALごとに削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.StorageDriver != config.StoragePostgres {
		// memoryはプロセスと共に消え、redisはTTLで失効するため削除ジョブは不要
		return fmt.Errorf("worker requires STORAGE_DRIVER=postgres (current: %s)", cfg.StorageDriver)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.close()

	cleanupJob := cleanup.NewCleanupJob(store.db, slog.Default(), cfg.ClientMaxAge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("client_max_age", cfg.ClientMaxAge),
	)

	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver != config.StoragePostgres {
		return fmt.Errorf("migrate requires STORAGE_DRIVER=postgres (current: %s)", cfg.StorageDriver)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL, slog.Default())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runProbe はバックエンドへの疎通確認を1回行い、結果をwに出力する。
// offlineの場合はエラーを返す。
func runProbe(w io.Writer, cfg *config.Config) error {
	if w == nil {
		w = os.Stdout
	}
	probe := connectivity.NewProbe(cfg.BackendURL, cfg.ProbeTimeout, nil, slog.Default())

	status := probe.Check(context.Background())
	fmt.Fprintf(w, "%s %s\n", cfg.BackendURL, status)

	if status != model.ConnectivityOnline {
		return fmt.Errorf("backend %s is %s", cfg.BackendURL, status)
	}
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
