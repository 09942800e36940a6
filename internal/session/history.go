package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/sitelens/internal/model"
)

// History は1セッション分の解析履歴を保持する。
// 新しい順（most-recent-first）の追記専用リストで、上限を超えると最古のエントリが追い出される。
type History struct {
	mu      sync.RWMutex
	entries []*model.HistoryEntry
	limit   int
}

// NewHistory はHistoryを生成する。
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add は解析結果を履歴の先頭に追加し、追加されたエントリを返す。
// 上限を超えた場合は末尾（最古）のエントリを破棄する。
func (h *History) Add(result *model.AnalysisResult) *model.HistoryEntry {
	entry := &model.HistoryEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		URL:         result.URL,
		CompanyName: result.CompanyName,
		Status:      result.Status,
		AnalysisID:  result.AnalysisID,
		Data:        result,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]*model.HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}

	return entry
}

// List は履歴のスナップショットを新しい順で返す。
func (h *History) List() []*model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Get は指定IDのエントリを返す。存在しない場合はnil。
func (h *History) Get(entryID string) *model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range h.entries {
		if e.ID == entryID {
			return e
		}
	}
	return nil
}

// Clear は履歴を空にする。
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
}

// Len は現在の履歴件数を返す。
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}
