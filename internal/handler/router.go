package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/storage"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Medium            storage.Medium
	ClientContext     middleware.ClientContextConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// アカウント操作と接続状態
	AccountService AccountService
	Connectivity   ConnectivityChecker

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer

	Views *Views
}

// NewRouter は全画面・APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → ClientContext → Logging → (RateLimit(Login) | RouteGuard)
//
// /health と /metrics はブラウザコンテキストを必要としないためチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}
	views := deps.Views
	if views == nil {
		views = MustNewViews()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AccountService, deps.Connectivity, views)
	pageHandler := NewPageHandler(views)
	profileHandler := NewProfileHandler(deps.AccountService, views)
	apiHandler := NewAPIHandler(deps.Connectivity, deps.HealthChecker)

	// --- ブラウザコンテキスト不要のルート ---
	r.Get("/health", apiHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- ブラウザコンテキストが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewClientContextMiddleware(deps.Medium, deps.ClientContext, logger))
		r.Use(middleware.NewLoggingMiddleware(logger))

		r.Get("/", pageHandler.Home)
		r.Get(middleware.UnauthorizedPath, pageHandler.Unauthorized)

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.LoginPage)
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/login/retry", authHandler.RetryConnectivity)
			r.Get("/register", authHandler.RegisterPage)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
		})

		// 別オリジンのクライアント向けJSON API
		r.Route("/api", func(r chi.Router) {
			r.Get("/session", apiHandler.Session)
			r.Get("/connectivity", apiHandler.Connectivity)
		})

		// 認証済みであればロールを問わないビュー
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRouteGuardMiddleware(mc))

			r.Get(dashboardPath, pageHandler.Dashboard)
			r.Route(profilePath, func(r chi.Router) {
				r.Get("/", profileHandler.Page)
				r.Post("/", profileHandler.Update)
				r.Post("/refresh", profileHandler.Refresh)
				r.Post("/password", profileHandler.ChangePassword)
				r.Post("/delete", profileHandler.Delete)
			})
		})

		// ロール別のビュー
		r.With(middleware.NewRouteGuardMiddleware(mc, model.RoleAdmin)).
			Get(adminDashboardPath, pageHandler.AdminDashboard)
		r.With(middleware.NewRouteGuardMiddleware(mc, model.RoleStudent)).
			Get(studentDashboardPath, pageHandler.StudentDashboard)
	})

	return r
}
