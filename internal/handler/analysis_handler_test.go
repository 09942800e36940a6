package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sitelens/internal/middleware"
	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/session"
)

// stubAnalyzer はテスト用のAnalyzerServiceInterface実装。
type stubAnalyzer struct {
	lastRequest *model.AnalysisRequest
	result      *model.AnalysisResult
	getResult   *model.AnalysisResult
	getErr      error
	listResult  *model.ListResult
	listErr     error
	lastPage    int
	lastLimit   int
	lastFilter  string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, request *model.AnalysisRequest) *model.AnalysisResult {
	s.lastRequest = request
	return s.result
}

func (s *stubAnalyzer) Get(ctx context.Context, analysisID string) (*model.AnalysisResult, error) {
	return s.getResult, s.getErr
}

func (s *stubAnalyzer) List(ctx context.Context, page, limit int, urlFilter string) (*model.ListResult, error) {
	s.lastPage, s.lastLimit, s.lastFilter = page, limit, urlFilter
	return s.listResult, s.listErr
}

// stubSSRFGuard はテスト用のSSRFGuardService実装。
type stubSSRFGuard struct {
	blockAll bool
}

func (s *stubSSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (s *stubSSRFGuard) ValidateURL(rawURL string) error {
	if s.blockAll {
		return fmt.Errorf("blocked url: %s", rawURL)
	}
	return nil
}

// newSessionStore はセッションを1つ登録したストアを返す。
func newSessionStore(t *testing.T, sessionID, username string) *session.Store {
	t.Helper()
	store := session.NewStore(50)
	err := store.Create(context.Background(), &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("セッションの作成に失敗した: %v", err)
	}
	return store
}

func authedRequest(method, target string, body *strings.Reader, username, sessionID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithSession(req.Context(), username, sessionID))
}

func TestAnalysisHandler_Analyze_Success_RecordedInHistory(t *testing.T) {
	analyzer := &stubAnalyzer{
		result: &model.AnalysisResult{
			AnalysisID:   "an-1",
			URL:          "https://example.com",
			CompanyName:  "Example Inc.",
			Status:       model.StatusSuccess,
			PaletteState: model.PaletteOK,
		},
	}
	store := newSessionStore(t, "sess-1", "demo")
	h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, store, newTestCollector())

	body := strings.NewReader(`{"url": "example.com", "include_colors": true}`)
	req := authedRequest(http.MethodPost, "/api/analyses", body, "demo", "sess-1")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want 200", rec.Code)
	}

	// スキーム省略時はhttpsを補完してリモートに渡すこと
	if analyzer.lastRequest.URL != "https://example.com" {
		t.Errorf("リモートへのURL = %q, want https://example.com", analyzer.lastRequest.URL)
	}
	if analyzer.lastRequest.SessionID != "sitelens-session-demo" {
		t.Errorf("session_id = %q", analyzer.lastRequest.SessionID)
	}
	if analyzer.lastRequest.TrackID == "" {
		t.Error("track_idが設定されていない")
	}
	if !analyzer.lastRequest.IncludeColors {
		t.Error("include_colorsが伝搬していない")
	}

	// 成功した解析は履歴に記録される
	history := store.HistoryFor("sess-1")
	if history.Len() != 1 {
		t.Fatalf("履歴件数 = %d, want 1", history.Len())
	}
	entry := history.List()[0]
	if entry.CompanyName != "Example Inc." || entry.AnalysisID != "an-1" {
		t.Errorf("履歴エントリ = %+v", entry)
	}
}

func TestAnalysisHandler_Analyze_FailedResult_Returns200NotRecorded(t *testing.T) {
	analyzer := &stubAnalyzer{
		result: &model.AnalysisResult{
			URL:          "https://example.com",
			Status:       model.StatusFailed,
			Error:        "解析がタイムアウトしました",
			PaletteState: model.PaletteAbsent,
		},
	}
	store := newSessionStore(t, "sess-1", "demo")
	h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, store, newTestCollector())

	body := strings.NewReader(`{"url": "https://example.com"}`)
	req := authedRequest(http.MethodPost, "/api/analyses", body, "demo", "sess-1")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	// リモート障害はHTTPエラーではなくデータとして返す
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want 200", rec.Code)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("レスポンスのパースに失敗した: %v", err)
	}
	if result.Status != model.StatusFailed || result.Error == "" {
		t.Errorf("失敗結果 = %+v", result)
	}

	if store.HistoryFor("sess-1").Len() != 0 {
		t.Error("失敗した解析は履歴に記録しないこと")
	}
}

func TestAnalysisHandler_Analyze_BlockedURL(t *testing.T) {
	analyzer := &stubAnalyzer{}
	store := newSessionStore(t, "sess-1", "demo")
	h := NewAnalysisHandler(analyzer, &stubSSRFGuard{blockAll: true}, store, newTestCollector())

	body := strings.NewReader(`{"url": "http://169.254.169.254/meta"}`)
	req := authedRequest(http.MethodPost, "/api/analyses", body, "demo", "sess-1")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("ステータスコード = %d, want 403", rec.Code)
	}
	if analyzer.lastRequest != nil {
		t.Error("ブロックされたURLはリモートに転送しないこと")
	}
}

func TestAnalysisHandler_Analyze_EmptyURL(t *testing.T) {
	store := newSessionStore(t, "sess-1", "demo")
	h := NewAnalysisHandler(&stubAnalyzer{}, &stubSSRFGuard{}, store, newTestCollector())

	body := strings.NewReader(`{"url": "  "}`)
	req := authedRequest(http.MethodPost, "/api/analyses", body, "demo", "sess-1")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ステータスコード = %d, want 400", rec.Code)
	}
}

func TestAnalysisHandler_GetAnalysis(t *testing.T) {
	t.Run("存在するID", func(t *testing.T) {
		analyzer := &stubAnalyzer{
			getResult: &model.AnalysisResult{AnalysisID: "an-42", Status: model.StatusSuccess},
		}
		h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, newSessionStore(t, "sess-1", "demo"), newTestCollector())

		req := authedRequest(http.MethodGet, "/api/analyses/an-42", nil, "demo", "sess-1")
		rec := httptest.NewRecorder()
		h.GetAnalysis(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want 200", rec.Code)
		}
	})

	t.Run("存在しないID", func(t *testing.T) {
		analyzer := &stubAnalyzer{getErr: model.NewAnalysisNotFoundError("missing")}
		h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, newSessionStore(t, "sess-1", "demo"), newTestCollector())

		req := authedRequest(http.MethodGet, "/api/analyses/missing", nil, "demo", "sess-1")
		rec := httptest.NewRecorder()
		h.GetAnalysis(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want 404", rec.Code)
		}
	})

	t.Run("サービス障害", func(t *testing.T) {
		analyzer := &stubAnalyzer{getErr: fmt.Errorf("connection refused")}
		h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, newSessionStore(t, "sess-1", "demo"), newTestCollector())

		req := authedRequest(http.MethodGet, "/api/analyses/an-1", nil, "demo", "sess-1")
		rec := httptest.NewRecorder()
		h.GetAnalysis(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("ステータスコード = %d, want 502", rec.Code)
		}
	})
}

func TestAnalysisHandler_ListAnalyses_ParamDefaults(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantLimit  int
		wantFilter string
	}{
		{"パラメータなし", "", 1, 10, ""},
		{"指定あり", "?page=3&limit=20&url_filter=example", 3, 20, "example"},
		{"不正な値", "?page=abc&limit=-5", 1, 10, ""},
		{"上限超過", "?limit=500", 1, 50, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &stubAnalyzer{listResult: &model.ListResult{Analyses: []*model.AnalysisResult{}}}
			h := NewAnalysisHandler(analyzer, &stubSSRFGuard{}, newSessionStore(t, "sess-1", "demo"), newTestCollector())

			req := authedRequest(http.MethodGet, "/api/analyses"+tt.query, nil, "demo", "sess-1")
			rec := httptest.NewRecorder()
			h.ListAnalyses(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("ステータスコード = %d, want 200", rec.Code)
			}
			if analyzer.lastPage != tt.wantPage || analyzer.lastLimit != tt.wantLimit || analyzer.lastFilter != tt.wantFilter {
				t.Errorf("page=%d limit=%d filter=%q, want page=%d limit=%d filter=%q",
					analyzer.lastPage, analyzer.lastLimit, analyzer.lastFilter,
					tt.wantPage, tt.wantLimit, tt.wantFilter)
			}
		})
	}
}

func TestNormalizeTargetURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"  example.com  ", "https://example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := normalizeTargetURL(tt.input); got != tt.want {
			t.Errorf("normalizeTargetURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
