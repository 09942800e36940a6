// Package session はインメモリのセッション状態と解析履歴を管理する。
// このコアは永続状態を一切所有しない。セッションも履歴もプロセス内に閉じ、
// プロセス終了とともに破棄される。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/sitelens/internal/model"
)

// Store はインメモリのセッションストア。
// セッションごとに解析履歴を保持し、セッション破棄時に履歴も破棄する。
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*model.Session
	histories    map[string]*History
	historyLimit int
}

// NewStore はStoreを生成する。
// historyLimitはセッションごとの履歴保持上限（0以下の場合は50）。
func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Store{
		sessions:     make(map[string]*model.Session),
		histories:    make(map[string]*History),
		historyLimit: historyLimit,
	}
}

// Create はセッションを登録し、空の履歴を割り当てる。
func (s *Store) Create(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.histories[session.ID] = NewHistory(s.historyLimit)
	return nil
}

// FindByID は指定IDのセッションを取得する。
// 存在しない場合はnilを返す。期限切れの場合はセッションと履歴を破棄してnilを返す。
func (s *Store) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if time.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		delete(s.histories, id)
		s.mu.Unlock()
		return nil, nil
	}

	return session, nil
}

// DeleteByID は指定IDのセッションと付随する履歴を削除する。
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	delete(s.histories, id)
	return nil
}

// HistoryFor は指定セッションの履歴を取得する。
// セッションが存在しない場合はnilを返す。
func (s *Store) HistoryFor(sessionID string) *History {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.histories[sessionID]
}

// Count は現在保持しているセッション数を返す。テストおよびメトリクス用。
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
