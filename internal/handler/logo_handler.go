package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/security"
)

// logoFetchTimeout はロゴ画像取得のタイムアウト。
const logoFetchTimeout = 10 * time.Second

// LogoHandler はロゴプレビューのサーバーサイドプロキシ。
// ブラウザから外部サイトの画像を直接読み込むと混在コンテンツや
// CORSの問題が起きるため、SSRF防止付きクライアントで代理取得する。
type LogoHandler struct {
	ssrfGuard  security.SSRFGuardService
	safeClient *http.Client
	maxSize    int64
}

// NewLogoHandler はLogoHandlerを生成する。
// maxSizeは取得する画像の最大バイト数。
func NewLogoHandler(ssrfGuard security.SSRFGuardService, maxSize int64) *LogoHandler {
	return &LogoHandler{
		ssrfGuard:  ssrfGuard,
		safeClient: ssrfGuard.NewSafeClient(logoFetchTimeout),
		maxSize:    maxSize,
	}
}

// GetLogo はロゴ画像を代理取得して返す。
// GET /api/logo?url=
func (h *LogoHandler) GetLogo(w http.ResponseWriter, r *http.Request) {
	logoURL := r.URL.Query().Get("url")
	if logoURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("urlパラメータが必要です"))
		return
	}

	if err := h.ssrfGuard.ValidateURL(logoURL); err != nil {
		slog.Warn("blocked logo fetch",
			slog.String("url", logoURL),
			slog.String("reason", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewSSRFBlockedError())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, logoURL, nil)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError(err.Error()))
		return
	}

	resp, err := h.safeClient.Do(req)
	if err != nil {
		// safeurlのブロックもここでエラーになる
		slog.Warn("logo fetch failed",
			slog.String("url", logoURL),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewLogoFetchFailedError("画像の取得に失敗しました"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewLogoFetchFailedError("画像の取得に失敗しました"))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewLogoFetchFailedError("画像ではないコンテンツが返されました"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")

	// サイズ上限を超えた分は切り捨てる
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.maxSize)); err != nil {
		slog.Warn("logo response copy interrupted", slog.String("error", err.Error()))
	}
}
