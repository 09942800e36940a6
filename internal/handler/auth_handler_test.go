package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sitelens/internal/metrics"
	"github.com/hitoshi/sitelens/internal/model"
)

// stubAuthService はテスト用のAuthServiceInterface実装。
type stubAuthService struct {
	validUsername string
	validPassword string
	sessionID     string
	logoutCalled  bool
	logoutErr     error
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*model.Session, bool) {
	if username != s.validUsername || password != s.validPassword {
		return nil, false
	}
	return &model.Session{ID: s.sessionID, Username: username}, true
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	s.logoutCalled = true
	return s.logoutErr
}

func (s *stubAuthService) CurrentUser(ctx context.Context, sessionID string) (string, error) {
	if sessionID == s.sessionID {
		return s.validUsername, nil
	}
	return "", fmt.Errorf("session not found")
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

func testAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, AuthHandlerConfig{SessionMaxAge: 86400}, newTestCollector())
}

func sessionCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	service := &stubAuthService{validUsername: "demo", validPassword: "demo123", sessionID: "sess-1"}
	h := testAuthHandler(service)

	body := strings.NewReader(`{"username": "demo", "password": "demo123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want 200", rec.Code)
	}

	cookie := sessionCookieFrom(rec)
	if cookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if cookie.Value != "sess-1" {
		t.Errorf("Cookie値 = %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("セッションCookieはHttpOnlyであること")
	}
	if cookie.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", cookie.MaxAge)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのパースに失敗した: %v", err)
	}
	if resp["username"] != "demo" {
		t.Errorf("username = %q", resp["username"])
	}
}

func TestAuthHandler_Login_Failure_UniformError(t *testing.T) {
	service := &stubAuthService{validUsername: "demo", validPassword: "demo123", sessionID: "sess-1"}
	h := testAuthHandler(service)

	// 未知のユーザー名とパスワード誤りで同一のレスポンスを返すこと
	bodies := []string{
		`{"username": "unknown", "password": "demo123"}`,
		`{"username": "demo", "password": "wrong"}`,
		`{"username": "", "password": ""}`,
	}

	var responses []string
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want 401 (body: %s)", rec.Code, body)
		}
		if sessionCookieFrom(rec) != nil {
			t.Error("ログイン失敗時はセッションCookieを設定しないこと")
		}
		responses = append(responses, rec.Body.String())
	}

	for i := 1; i < len(responses); i++ {
		if responses[i] != responses[0] {
			t.Errorf("失敗レスポンスはユーザー名の存在有無で区別できないこと: %q != %q", responses[i], responses[0])
		}
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	h := testAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	service := &stubAuthService{sessionID: "sess-1"}
	h := testAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("ステータスコード = %d, want 204", rec.Code)
	}
	if !service.logoutCalled {
		t.Error("サービスのLogoutが呼ばれていない")
	}

	cookie := sessionCookieFrom(rec)
	if cookie == nil {
		t.Fatal("クリア用のCookieが設定されていない")
	}
	if cookie.MaxAge != -1 || cookie.Value != "" {
		t.Errorf("Cookieがクリアされていない: MaxAge=%d Value=%q", cookie.MaxAge, cookie.Value)
	}
}

func TestAuthHandler_Logout_ServiceError_StillClearsCookie(t *testing.T) {
	service := &stubAuthService{sessionID: "sess-1", logoutErr: fmt.Errorf("store failure")}
	h := testAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("ステータスコード = %d, want 204", rec.Code)
	}
	if cookie := sessionCookieFrom(rec); cookie == nil || cookie.MaxAge != -1 {
		t.Error("ストア障害時でもCookieはクリアすること")
	}
}

func TestAuthHandler_Me(t *testing.T) {
	service := &stubAuthService{validUsername: "demo", sessionID: "sess-1"}
	h := testAuthHandler(service)

	t.Run("有効なセッション", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want 200", rec.Code)
		}
		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["username"] != "demo" {
			t.Errorf("username = %q", resp["username"])
		}
	})

	t.Run("Cookieなし", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want 401", rec.Code)
		}
	})

	t.Run("無効なセッション", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired"})
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want 401", rec.Code)
		}
	})
}
