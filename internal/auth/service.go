package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/sitelens/internal/model"
)

// SessionStore はセッションの発行・破棄・検索に必要なインターフェース。
// session.Storeの部分集合として定義する。
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はパスワード認証に関するビジネスロジックを提供する。
// ユーザーマップとシークレットキーは起動時に確定し、以後変更されない。
type Service struct {
	users     map[string]string // username -> 保存済みハッシュ
	secretKey string
	sessions  SessionStore
	config    ServiceConfig
}

// dummyHash は存在しないユーザーに対する照合に使用するダミーハッシュ。
// 未知のユーザー名でも既知のユーザー名と同じ検証コードパスを通すことで、
// レスポンスタイムからユーザー名の存在を推測されることを防ぐ。
const dummyHash = "0000000000000000000000000000000000000000000000000000000000000000"

// NewService はServiceを生成する。
func NewService(users map[string]string, secretKey string, sessions SessionStore, config ServiceConfig) *Service {
	return &Service{
		users:     users,
		secretKey: secretKey,
		sessions:  sessions,
		config:    config,
	}
}

// Login はユーザー名とパスワードを検証し、成功時にセッションを発行する。
// 未知のユーザー名と誤ったパスワードは区別できない失敗として扱う。
// シークレットキーが空の場合は常に失敗する（フェイルクローズ）。
// 戻り値のboolが認証結果を表し、失敗時にセッションはnil。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, bool) {
	storedHash, known := s.users[username]
	if !known {
		storedHash = dummyHash
	}

	if !VerifyPassword(password, storedHash, s.secretKey) || !known {
		slog.Warn("login failed", slog.String("username", username))
		return nil, false
	}

	session, err := s.createSession(ctx, username)
	if err != nil {
		slog.Error("failed to create session",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	slog.Info("user logged in", slog.String("username", username))
	return session, true
}

// Logout はセッションを同期的に破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションIDから現在のログインユーザー名を取得する。
// セッションが存在しない、または期限切れの場合はエラーを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return "", fmt.Errorf("session not found or expired")
	}

	return session.Username, nil
}

// createSession はセッションを作成し保存する。
func (s *Service) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
