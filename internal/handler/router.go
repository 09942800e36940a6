package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sitelens/internal/metrics"
	"github.com/hitoshi/sitelens/internal/middleware"
	"github.com/hitoshi/sitelens/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 解析
	AnalyzerService AnalyzerServiceInterface
	SSRFGuard       security.SSRFGuardService
	Histories       HistoryProvider

	// 接続状態
	ConnectionChecker ConnectionChecker

	// ロゴプレビュー
	LogoMaxSize int64

	// メトリクス
	Metrics metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → CSRF → SessionMiddleware → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはセッションミドルウェアの外に配置する。
// ログインにはセッションの代わりにIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	analysisHandler := NewAnalysisHandler(deps.AnalyzerService, deps.SSRFGuard, deps.Histories, deps.Metrics)
	historyHandler := NewHistoryHandler(deps.Histories)
	statusHandler := NewStatusHandler(deps.ConnectionChecker)
	logoHandler := NewLogoHandler(deps.SSRFGuard, deps.LogoMaxSize)

	// --- 認証不要のルート ---

	r.Get("/health", statusHandler.Health)
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		// ログインは総当たり対策としてIP単位のレート制限を適用
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 解析
		r.Route("/api/analyses", func(r chi.Router) {
			r.Post("/", analysisHandler.Analyze)
			r.Get("/", analysisHandler.ListAnalyses)
			r.Get("/{id}", analysisHandler.GetAnalysis)
		})

		// セッション履歴
		r.Route("/api/history", func(r chi.Router) {
			r.Get("/", historyHandler.ListHistory)
			r.Delete("/", historyHandler.ClearHistory)
			r.Get("/{id}", historyHandler.GetHistoryEntry)
		})

		// ロゴプレビューと接続状態
		r.Get("/api/logo", logoHandler.GetLogo)
		r.Get("/api/status", statusHandler.Status)
	})

	return r
}
