package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/sitelens/internal/metrics"
	"github.com/hitoshi/sitelens/internal/middleware"
	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/security"
	"github.com/hitoshi/sitelens/internal/session"
)

const (
	// sessionIDPrefix はリモートサービスに送るsession_idのプレフィックス。
	sessionIDPrefix = "sitelens-session-"

	defaultListLimit = 10
	maxListLimit     = 50
)

// AnalyzerServiceInterface は解析ハンドラーが必要とするサービスインターフェース。
type AnalyzerServiceInterface interface {
	Analyze(ctx context.Context, request *model.AnalysisRequest) *model.AnalysisResult
	Get(ctx context.Context, analysisID string) (*model.AnalysisResult, error)
	List(ctx context.Context, page, limit int, urlFilter string) (*model.ListResult, error)
}

// HistoryProvider はセッションごとの解析履歴を提供するインターフェース。
// session.Storeの部分集合として定義する。
type HistoryProvider interface {
	HistoryFor(sessionID string) *session.History
}

// AnalysisHandler はウェブサイト解析のHTTPハンドラー。
type AnalysisHandler struct {
	analyzer  AnalyzerServiceInterface
	ssrfGuard security.SSRFGuardService
	histories HistoryProvider
	metrics   metrics.MetricsCollector
}

// NewAnalysisHandler はAnalysisHandlerを生成する。
func NewAnalysisHandler(analyzer AnalyzerServiceInterface, ssrfGuard security.SSRFGuardService, histories HistoryProvider, collector metrics.MetricsCollector) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:  analyzer,
		ssrfGuard: ssrfGuard,
		histories: histories,
		metrics:   collector,
	}
}

// analyzeRequest は解析開始リクエストのボディ。
type analyzeRequest struct {
	URL              string   `json:"url"`
	IncludeLogo      bool     `json:"include_logo"`
	IncludeColors    bool     `json:"include_colors"`
	IncludeBrand     bool     `json:"include_brand"`
	AdditionalFields []string `json:"additional_fields"`
}

// Analyze はウェブサイト解析を開始する。
// POST /api/analyses
// リモートサービスの失敗はHTTPエラーではなく、status=failedの結果として200で返す。
// 成功した解析のみセッション履歴に記録する。
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	targetURL := normalizeTargetURL(req.URL)
	if targetURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	if err := h.ssrfGuard.ValidateURL(targetURL); err != nil {
		slog.Warn("blocked analysis target",
			slog.String("url", targetURL),
			slog.String("reason", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewSSRFBlockedError())
		return
	}

	request := &model.AnalysisRequest{
		URL:              targetURL,
		SessionID:        sessionIDPrefix + username,
		TrackID:          uuid.NewString(),
		IncludeLogo:      req.IncludeLogo,
		IncludeColors:    req.IncludeColors,
		IncludeBrand:     req.IncludeBrand,
		AdditionalFields: req.AdditionalFields,
	}

	start := time.Now()
	result := h.analyzer.Analyze(r.Context(), request)
	h.metrics.RecordAnalyzeLatency(time.Since(start))
	h.metrics.RecordPaletteRepair(string(result.PaletteState))

	if result.Status == model.StatusFailed {
		h.metrics.RecordAnalyzeFailure(failureReason(result.Error))
	} else {
		h.metrics.RecordAnalyzeSuccess()
	}

	// 成功した解析のみ履歴に記録する
	if result.Status == model.StatusSuccess {
		if sessionID, err := middleware.SessionIDFromContext(r.Context()); err == nil {
			if history := h.histories.HistoryFor(sessionID); history != nil {
				history.Add(result)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetAnalysis は解析IDを指定して過去の結果を取得する。
// GET /api/analyses/{id}
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "id")

	result, err := h.analyzer.Get(r.Context(), analysisID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ListAnalyses は解析結果の一覧をページング付きで取得する。
// GET /api/analyses?page=&limit=&url_filter=
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := parseIntQuery(r, "limit", defaultListLimit)
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	result, err := h.analyzer.List(r.Context(), page, limit, r.URL.Query().Get("url_filter"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// normalizeTargetURL は入力URLを整形する。
// スキームが省略されている場合はhttpsを補完する。
func normalizeTargetURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		return "https://" + trimmed
	}
	return trimmed
}

// failureReason はメトリクス用に失敗メッセージを原因ラベルに分類する。
func failureReason(message string) string {
	if strings.Contains(message, "タイムアウト") {
		return "timeout"
	}
	if strings.Contains(message, "接続に失敗") {
		return "connection"
	}
	return "upstream_error"
}

// parseIntQuery はクエリパラメータを整数として取得する。不正な値はデフォルトを返す。
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

// --- ヘルパー関数 ---

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは上流サービスの障害として扱う
	slog.Error("analysis service error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
		Code:     "ANALYSIS_SERVICE_ERROR",
		Message:  "解析サービスとの通信に失敗しました。",
		Category: "analysis",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeLoginFailed:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeHistoryNotFound, model.ErrCodeAnalysisNotFound:
		return http.StatusNotFound
	case model.ErrCodeLogoFetchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
