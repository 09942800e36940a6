// Package model はドメインモデルを定義する。
package model

import "time"

// AnalysisStatus は解析結果のステータスを表す。
type AnalysisStatus string

const (
	// StatusProcessing は解析が進行中であることを示す。
	StatusProcessing AnalysisStatus = "processing"
	// StatusPartial は解析が部分的に完了したことを示す。
	StatusPartial AnalysisStatus = "partial"
	// StatusSuccess は解析が正常に完了したことを示す。
	StatusSuccess AnalysisStatus = "success"
	// StatusFailed は解析が失敗したことを示す。
	StatusFailed AnalysisStatus = "failed"
)

// IsValid はステータスが定義済みの値かどうかを判定する。
func (s AnalysisStatus) IsValid() bool {
	switch s {
	case StatusProcessing, StatusPartial, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// AnalysisRequest は解析サービスへのリクエストを表す。
type AnalysisRequest struct {
	URL              string   `json:"url"`
	SessionID        string   `json:"session_id,omitempty"`
	TrackID          string   `json:"track_id,omitempty"`
	IncludeLogo      bool     `json:"include_logo"`
	IncludeColors    bool     `json:"include_colors"`
	IncludeBrand     bool     `json:"include_brand"`
	AdditionalFields []string `json:"additional_fields,omitempty"`
}

// PaletteDiagnostic はカラーパレット正規化の診断結果を表す。
// 「元データにパレットが存在しない」と「存在したが壊れていた」を区別し、
// 表示側が適切な警告を出せるようにする。
type PaletteDiagnostic string

const (
	// PaletteOK はパレットが正常に正規化されたことを示す。
	PaletteOK PaletteDiagnostic = "ok"
	// PaletteAbsent は元データにパレットが含まれていなかったことを示す。
	PaletteAbsent PaletteDiagnostic = "absent"
	// PaletteMalformed はパレットがリストではなく生文字列（HTML断片等）で届いたことを示す。
	PaletteMalformed PaletteDiagnostic = "malformed"
	// PaletteNoValidColors はリストは届いたが有効なカラーレコードが1件もなかったことを示す。
	PaletteNoValidColors PaletteDiagnostic = "no_valid_colors"
)

// ColorRecord は正規化済みのカラー情報を表す。
// HexCodeは常に存在する。RGBが元データに無い、または3要素の数値列でない場合は
// (0,0,0)のセンチネルを設定し、RGBKnown=falseで「不明」を区別する。
type ColorRecord struct {
	HexCode  string `json:"hex_code"`
	RGB      [3]int `json:"rgb"`
	RGBKnown bool   `json:"rgb_known"`
}

// AnalysisResult は解析サービスから取得し正規化済みの結果を表す。
// すべてのフィールドは欠損を許容する。正規化後のColorPaletteは
// 空または有効なColorRecordのリストのいずれかであり、生文字列にはならない。
type AnalysisResult struct {
	AnalysisID     string            `json:"analysis_id,omitempty"`
	URL            string            `json:"url,omitempty"`
	LogoURL        string            `json:"logo_url,omitempty"`
	CompanyName    string            `json:"company_name,omitempty"`
	CompanyInfo    string            `json:"company_info,omitempty"`
	BrandIdentity  string            `json:"brand_identity,omitempty"`
	BrandVoice     *BrandVoice       `json:"brand_voice,omitempty"`
	ColorPalette   []ColorRecord     `json:"color_palette"`
	PaletteState   PaletteDiagnostic `json:"palette_state"`
	RawPalette     string            `json:"raw_palette,omitempty"`
	RawPaletteHTML bool              `json:"raw_palette_html,omitempty"`
	WebsiteContent string            `json:"website_content,omitempty"`
	AdditionalInfo map[string]any    `json:"additional_info,omitempty"`
	ProcessingTime float64           `json:"processing_time,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
	Status         AnalysisStatus    `json:"status"`
	Error          string            `json:"error,omitempty"`
}

// BrandVoice はブランドボイス解析の結果を表す。
type BrandVoice struct {
	TargetAudience string   `json:"target_audience,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	Tones          []string `json:"tones,omitempty"`
	LanguageTypes  []string `json:"language_types,omitempty"`
	Language       string   `json:"language,omitempty"`
}

// HistoryEntry はセッション履歴の1エントリを表す。
// 新しい順に保持され、上限を超えた場合は最古のエントリが追い出される。
type HistoryEntry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	URL         string          `json:"url"`
	CompanyName string          `json:"company_name"`
	Status      AnalysisStatus  `json:"status"`
	AnalysisID  string          `json:"analysis_id,omitempty"`
	Data        *AnalysisResult `json:"data"`
}

// ListResult は解析結果一覧エンドポイントのレスポンスを表す。
// リモートサービスのページング情報をそのまま保持する。
type ListResult struct {
	Analyses []*AnalysisResult `json:"analyses"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
}

// ConnectionInfo は解析サービスへの接続状態のデバッグ情報を表す。
type ConnectionInfo struct {
	BaseURL          string `json:"base_url"`
	HasAPIKey        bool   `json:"has_api_key"`
	ServiceAvailable bool   `json:"service_available"`
}
