package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sitelens/internal/middleware"
	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/session"
)

// HistoryHandler はセッション解析履歴のHTTPハンドラー。
// 履歴はセッションに紐づくインメモリデータであり、ログアウトで消える。
type HistoryHandler struct {
	histories HistoryProvider
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(histories HistoryProvider) *HistoryHandler {
	return &HistoryHandler{histories: histories}
}

// historyListResponse は履歴一覧のAPIレスポンス。
type historyListResponse struct {
	Entries []*model.HistoryEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// ListHistory はセッションの解析履歴を新しい順で返す。
// GET /api/history
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history := h.sessionHistory(r)
	if history == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	entries := history.List()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(historyListResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// GetHistoryEntry は履歴エントリを1件取得する。
// サイドバーから過去の解析結果を再表示する際に使用する。
// GET /api/history/{id}
func (h *HistoryHandler) GetHistoryEntry(w http.ResponseWriter, r *http.Request) {
	history := h.sessionHistory(r)
	if history == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	entryID := chi.URLParam(r, "id")
	entry := history.Get(entryID)
	if entry == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewHistoryNotFoundError(entryID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// ClearHistory はセッションの解析履歴をすべて削除する。
// DELETE /api/history
func (h *HistoryHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	history := h.sessionHistory(r)
	if history == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	history.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// sessionHistory はリクエストのセッションに紐づく履歴を返す。
// セッションが消えている場合はnilを返す。
func (h *HistoryHandler) sessionHistory(r *http.Request) *session.History {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		return nil
	}
	return h.histories.HistoryFor(sessionID)
}
