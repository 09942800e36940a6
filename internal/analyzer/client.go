// Package analyzer はウェブサイト解析サービスとの連携機能を提供する。
// リモート解析APIの呼び出しと、レスポンスの正規化器への受け渡しを含む。
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/normalize"
)

const (
	// analyzePath は解析開始エンドポイントのパス。
	analyzePath = "/api/v1/website-analyser/analyze"
	// getPath は解析結果取得エンドポイントのパス。
	getPath = "/api/v1/website-analyser/get"
	// listPath は解析結果一覧エンドポイントのパス。
	listPath = "/api/v1/website-analyser/list"
	// pingPath は死活確認エンドポイントのパス。
	pingPath = "/api/v1/ping"

	userAgent = "Sitelens/1.0"
)

// Client はウェブサイト解析サービスのAPIクライアント。
// 解析は最大数分かかるため、解析用と死活確認用で別々のタイムアウトを持つ。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pingClient *http.Client
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// NewClient はClient の新しいインスタンスを生成する。
// baseURLの末尾スラッシュは設定層で除去済みであることを前提とする。
func NewClient(baseURL, apiKey string, analyzeTimeout, pingTimeout time.Duration, normalizer *normalize.Normalizer, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: analyzeTimeout},
		pingClient: &http.Client{Timeout: pingTimeout},
		normalizer: normalizer,
		logger:     logger,
	}
}

// Analyze は指定URLの解析をリモートサービスに依頼し、正規化済みの結果を返す。
// タイムアウト・接続失敗・非200ステータスはエラーとしてではなく
// status=failedの結果として返す。呼び出し元は失敗結果を通常のデータとして扱える。
func (c *Client) Analyze(ctx context.Context, request *model.AnalysisRequest) *model.AnalysisResult {
	body, err := json.Marshal(request)
	if err != nil {
		return c.failedResult(request.URL, fmt.Sprintf("リクエストの作成に失敗しました: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return c.failedResult(request.URL, fmt.Sprintf("リクエストの作成に失敗しました: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("解析サービスの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("url", request.URL),
		)
		return c.failedResult(request.URL, transportErrorMessage(err))
	}
	defer resp.Body.Close()

	raw, err := c.decodeBody(resp)
	if err != nil {
		c.logger.Error("解析サービスのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("http_status", resp.StatusCode),
		)
		return c.failedResult(request.URL, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		message := errorDetail(raw, resp.StatusCode)
		c.logger.Error("解析サービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("url", request.URL),
		)
		return c.failedResult(request.URL, message)
	}

	result := c.normalizer.Normalize(raw)
	if result.URL == "" {
		result.URL = request.URL
	}
	return result
}

// Get はanalysis_idを指定して過去の解析結果を取得する。
// 結果が存在しない場合やサービス障害時はエラーを返す。
func (c *Client) Get(ctx context.Context, analysisID string) (*model.AnalysisResult, error) {
	reqURL, err := url.Parse(c.baseURL + getPath)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("analysis_id", analysisID)
	reqURL.RawQuery = q.Encode()

	raw, status, err := c.doGet(ctx, c.httpClient, reqURL.String())
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, model.NewAnalysisNotFoundError(analysisID)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("解析サービスがステータス %d を返しました: %s", status, errorDetail(raw, status))
	}

	return c.normalizer.Normalize(raw), nil
}

// List は解析結果の一覧をページング付きで取得する。
// 一覧に含まれる各結果も正規化を通してから返す。
func (c *Client) List(ctx context.Context, page, limit int, urlFilter string) (*model.ListResult, error) {
	reqURL, err := url.Parse(c.baseURL + listPath)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if urlFilter != "" {
		q.Set("url_filter", urlFilter)
	}
	reqURL.RawQuery = q.Encode()

	raw, status, err := c.doGet(ctx, c.httpClient, reqURL.String())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("解析サービスがステータス %d を返しました: %s", status, errorDetail(raw, status))
	}

	result := &model.ListResult{
		Analyses: []*model.AnalysisResult{},
		Page:     page,
		Limit:    limit,
	}
	if total, ok := raw["total"].(float64); ok {
		result.Total = int(total)
	}
	if p, ok := raw["page"].(float64); ok {
		result.Page = int(p)
	}
	if l, ok := raw["limit"].(float64); ok {
		result.Limit = int(l)
	}
	if analyses, ok := raw["analyses"].([]any); ok {
		for _, item := range analyses {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			result.Analyses = append(result.Analyses, c.normalizer.Normalize(entry))
		}
	}
	return result, nil
}

// Ping は解析サービスの死活を確認する。到達できればtrueを返す。
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pingPath, nil)
	if err != nil {
		return false
	}
	c.setCommonHeaders(req)

	resp, err := c.pingClient.Do(req)
	if err != nil {
		c.logger.Warn("解析サービスの死活確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// ConnectionInfo は接続設定と現在のサービス可用性を返す。
func (c *Client) ConnectionInfo(ctx context.Context) *model.ConnectionInfo {
	return &model.ConnectionInfo{
		BaseURL:          c.baseURL,
		HasAPIKey:        c.apiKey != "",
		ServiceAvailable: c.Ping(ctx),
	}
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doGet はGETリクエストを実行し、ボディをmapとしてデコードして返す。
func (c *Client) doGet(ctx context.Context, client *http.Client, rawURL string) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("解析サービスの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("解析サービスへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	raw, err := c.decodeBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

// decodeBody はレスポンスボディをmapとしてデコードする。
// エラーレスポンスのボディはJSONでないことがあるため、その場合は空mapを返す。
func (c *Client) decodeBody(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		if resp.StatusCode != http.StatusOK {
			// エラーステータスで非JSONボディの場合はステータスのみで判断する
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return raw, nil
}

// failedResult は失敗を表す正規化済み結果を生成する。
func (c *Client) failedResult(requestURL, message string) *model.AnalysisResult {
	return &model.AnalysisResult{
		URL:          requestURL,
		Status:       model.StatusFailed,
		Error:        message,
		PaletteState: model.PaletteAbsent,
	}
}

// errorDetail はエラーレスポンスからユーザー向けのメッセージを取り出す。
// FastAPI形式のdetailフィールドを優先し、無ければステータスから組み立てる。
func errorDetail(raw map[string]any, status int) string {
	if raw != nil {
		if detail, ok := raw["detail"].(string); ok && detail != "" {
			return detail
		}
		if errMsg, ok := raw["error"].(string); ok && errMsg != "" {
			return errMsg
		}
	}
	return fmt.Sprintf("解析サービスがステータス %d を返しました", status)
}

// transportErrorMessage はトランスポート層のエラーをユーザー向けの文言に変換する。
func transportErrorMessage(err error) string {
	if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
		return "解析がタイムアウトしました。時間をおいて再度お試しください"
	}
	return fmt.Sprintf("解析サービスへの接続に失敗しました: %v", err)
}
