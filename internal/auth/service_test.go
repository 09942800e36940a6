package auth

import (
	"context"
	"testing"

	"github.com/hitoshi/sitelens/internal/session"
)

const testSecretKey = "test-secret-key-32bytes-long!!!!"

func newTestService(t *testing.T, secretKey string) *Service {
	t.Helper()
	users := map[string]string{
		"demo": HashPassword("demo123", secretKey),
	}
	return NewService(users, secretKey, session.NewStore(50), ServiceConfig{SessionMaxAge: 3600})
}

func TestService_Login_CorrectCredentials_IssuesSession(t *testing.T) {
	svc := newTestService(t, testSecretKey)
	ctx := context.Background()

	sess, ok := svc.Login(ctx, "demo", "demo123")
	if !ok {
		t.Fatal("正しい認証情報でログインが失敗した")
	}
	if sess == nil {
		t.Fatal("ログイン成功時はセッションが発行されること")
	}
	if sess.Username != "demo" {
		t.Errorf("Username = %q, want %q", sess.Username, "demo")
	}
	if len(sess.ID) != 64 {
		t.Errorf("セッションID長 = %d, want 64", len(sess.ID))
	}

	// 発行されたセッションでユーザー名を引けること
	username, err := svc.CurrentUser(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CurrentUser がエラーを返した: %v", err)
	}
	if username != "demo" {
		t.Errorf("CurrentUser = %q, want %q", username, "demo")
	}
}

func TestService_Login_WrongPassword_Fails(t *testing.T) {
	svc := newTestService(t, testSecretKey)

	wrong := []string{"demo124", "DEMO123", "", "admin"}
	for _, p := range wrong {
		if sess, ok := svc.Login(context.Background(), "demo", p); ok || sess != nil {
			t.Errorf("誤ったパスワード %q でログインが成功した", p)
		}
	}
}

func TestService_Login_UnknownUser_IndistinguishableFailure(t *testing.T) {
	svc := newTestService(t, testSecretKey)

	sess, ok := svc.Login(context.Background(), "no-such-user", "demo123")
	if ok || sess != nil {
		t.Error("未知のユーザー名でログインが成功してはならない")
	}
}

func TestService_Login_EmptySecretKey_FailsClosed(t *testing.T) {
	// シークレットキーが空の場合、保存ハッシュが何であれ認証は成立しない
	users := map[string]string{
		"demo": HashPassword("demo123", ""),
	}
	svc := NewService(users, "", session.NewStore(50), ServiceConfig{SessionMaxAge: 3600})

	sess, ok := svc.Login(context.Background(), "demo", "demo123")
	if ok || sess != nil {
		t.Error("シークレットキー不在時に認証が成立してはならない")
	}
}

func TestService_Logout_DestroysSession(t *testing.T) {
	svc := newTestService(t, testSecretKey)
	ctx := context.Background()

	sess, ok := svc.Login(ctx, "demo", "demo123")
	if !ok {
		t.Fatal("ログインに失敗した")
	}

	if err := svc.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("Logout がエラーを返した: %v", err)
	}

	if _, err := svc.CurrentUser(ctx, sess.ID); err == nil {
		t.Error("ログアウト後のセッションは無効でなければならない")
	}
}

func TestService_Logout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := newTestService(t, testSecretKey)

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("空のセッションIDに対してはエラーを返すこと")
	}
}

func TestService_CurrentUser_UnknownSession_ReturnsError(t *testing.T) {
	svc := newTestService(t, testSecretKey)

	if _, err := svc.CurrentUser(context.Background(), "no-such-session"); err == nil {
		t.Error("存在しないセッションIDに対してはエラーを返すこと")
	}
}

// デモ認証情報のエンドツーエンド検証:
// VALID_USERS形式から構築したユーザーマップに対して demo/demo123 が成功し、
// それ以外のパスワードは失敗する。
func TestService_EndToEnd_DemoCredentials(t *testing.T) {
	raw := "demo:" + HashPassword("demo123", testSecretKey)
	users := ParseValidUsers(raw)
	svc := NewService(users, testSecretKey, session.NewStore(50), ServiceConfig{SessionMaxAge: 3600})

	if _, ok := svc.Login(context.Background(), "demo", "demo123"); !ok {
		t.Error("demo/demo123 でログインできること")
	}
	if _, ok := svc.Login(context.Background(), "demo", "another-password"); ok {
		t.Error("demo の他のパスワードではログインできないこと")
	}
}
