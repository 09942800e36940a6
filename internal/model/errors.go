// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, analysis, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeHistoryNotFound  = "HISTORY_NOT_FOUND"
	ErrCodeAnalysisNotFound = "ANALYSIS_NOT_FOUND"
	ErrCodeLogoFetchFailed  = "LOGO_FETCH_FAILED"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// ユーザー名の存在有無を区別しない一律のメッセージを返す。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRequestError はリクエスト解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewHistoryNotFoundError は履歴エントリ未検出エラーを生成する。
func NewHistoryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeHistoryNotFound,
		Message:  fmt.Sprintf("指定された履歴エントリが見つかりません: %s", entryID),
		Category: "analysis",
		Action:   "履歴一覧から有効なエントリを選択してください。",
	}
}

// NewAnalysisNotFoundError は解析結果未検出エラーを生成する。
func NewAnalysisNotFoundError(analysisID string) *APIError {
	return &APIError{
		Code:     ErrCodeAnalysisNotFound,
		Message:  fmt.Sprintf("指定された解析結果が見つかりません: %s", analysisID),
		Category: "analysis",
		Action:   "解析IDを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が制限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewLogoFetchFailedError はロゴ取得失敗エラーを生成する。
func NewLogoFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLogoFetchFailed,
		Message:  fmt.Sprintf("ロゴ画像の取得に失敗しました: %s", reason),
		Category: "analysis",
		Action:   "ロゴURLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}
