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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/sitelens/internal/analyzer"
	"github.com/hitoshi/sitelens/internal/auth"
	"github.com/hitoshi/sitelens/internal/config"
	"github.com/hitoshi/sitelens/internal/handler"
	"github.com/hitoshi/sitelens/internal/logger"
	"github.com/hitoshi/sitelens/internal/metrics"
	"github.com/hitoshi/sitelens/internal/middleware"
	"github.com/hitoshi/sitelens/internal/normalize"
	"github.com/hitoshi/sitelens/internal/security"
	"github.com/hitoshi/sitelens/internal/session"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envファイルの読み込み（ローカル開発用。存在しなければ無視）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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

	if cmd == CommandHashPassword {
		return runHashPassword(w, cfg, args[1:])
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、APIサーバーとメトリクスサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. セッションストアの初期化
	sessionStore := session.NewStore(cfg.HistoryLimit)

	// 2. 認証サービスの初期化
	users := auth.ParseValidUsers(cfg.ValidUsers)
	authService := auth.NewService(
		users, cfg.AuthSecretKey, sessionStore,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. 解析クライアントの初期化
	normalizer := normalize.New(sanitizer)
	analyzerClient := analyzer.NewClient(
		cfg.APIBaseURL, cfg.APIKey,
		cfg.AnalyzeTimeout, cfg.PingTimeout,
		normalizer, slog.Default(),
	)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. レート制限の初期化（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionStore,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		AnalyzerService: analyzerClient,
		SSRFGuard:       ssrfGuard,
		Histories:       sessionStore,

		ConnectionChecker: analyzerClient,

		LogoMaxSize: cfg.LogoMaxSize,

		Metrics: collector,
	}

	router := handler.NewRouter(deps)

	// アクセスログとパニックリカバリは全ルート共通の最外層に置く
	chain := middleware.NewRecoveryMiddleware()(
		middleware.NewLoggingMiddleware(slog.Default(), collector)(router),
	)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 9. メトリクスサーバーの起動（内部ネットワーク向けに別ポートで公開）
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.SetupMetricsRoute(registry))
	metricsServer := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHashPassword はVALID_USERS用のパスワードハッシュを生成して出力する。
// AUTH_SECRET_KEYが異なればハッシュも異なるため、本番と同じ鍵を設定して実行する。
func runHashPassword(w io.Writer, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hashpw <password>")
	}

	hash := auth.HashPassword(args[0], cfg.AuthSecretKey)
	fmt.Fprintln(w, hash)
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
