package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/sitelens/internal/model"
)

// ConnectionChecker は接続状態の取得に必要なインターフェース。
type ConnectionChecker interface {
	ConnectionInfo(ctx context.Context) *model.ConnectionInfo
}

// StatusHandler は接続状態とヘルスチェックのHTTPハンドラー。
type StatusHandler struct {
	checker ConnectionChecker
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(checker ConnectionChecker) *StatusHandler {
	return &StatusHandler{checker: checker}
}

// Status は解析サービスへの接続状態を返す。
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	info := h.checker.ConnectionInfo(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// Health はサーバー自身のヘルスチェックに応答する。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
