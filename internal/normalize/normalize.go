// Package normalize は解析サービスの緩く型付けされたレスポンスを
// 表示安全な内部構造に正規化する。
//
// リモートサービスのレスポンスは欠損フィールドや型の崩れたサブ構造
// （構造化リストの代わりに生のHTML文字列で届くカラーパレット等）を含むことがある。
// Normalizeはこれらを例外なく受け入れ、欠損はゼロ値、壊れた構造は
// 診断フラグ付きの縮退データに変換する。この境界を通過した後の
// AnalysisResultは常に整形式であることが保証される。
package normalize

import (
	"github.com/hitoshi/sitelens/internal/model"
	"github.com/hitoshi/sitelens/internal/security"
)

// Normalizer は解析レスポンスの正規化処理を提供する。
// 表示用の自由テキストフィールドはサニタイザーを通してから返す。
type Normalizer struct {
	sanitizer security.ContentSanitizerService
}

// New はNormalizerを生成する。
func New(sanitizer security.ContentSanitizerService) *Normalizer {
	return &Normalizer{sanitizer: sanitizer}
}

// Normalize はJSONデコード済みの生レスポンスをAnalysisResultに正規化する。
// エラーを返さず、panicもしない。欠損フィールドはゼロ値のまま、
// 予期しない形状は診断フラグ付きの空データに縮退する。
// statusが欠損または未定義値の場合はfailedとして扱う。
func (n *Normalizer) Normalize(raw map[string]any) *model.AnalysisResult {
	result := &model.AnalysisResult{
		AnalysisID:     asString(raw["analysis_id"]),
		URL:            asString(raw["url"]),
		LogoURL:        asString(raw["logo_url"]),
		CompanyName:    asString(raw["company_name"]),
		CompanyInfo:    n.sanitizer.Sanitize(asString(raw["company_info"])),
		BrandIdentity:  n.sanitizer.Sanitize(asString(raw["brand_identity"])),
		BrandVoice:     normalizeBrandVoice(raw["brand_voice"]),
		WebsiteContent: n.sanitizer.Sanitize(asString(raw["website_content"])),
		AdditionalInfo: n.normalizeAdditionalInfo(raw["additional_info"]),
		ProcessingTime: asFloat(raw["processing_time"]),
		CreatedAt:      asString(raw["created_at"]),
		Error:          asString(raw["error"]),
	}

	status := model.AnalysisStatus(asString(raw["status"]))
	if !status.IsValid() {
		status = model.StatusFailed
	}
	result.Status = status

	colors, diag, rawPalette := repairPalette(raw["color_palette"])
	result.ColorPalette = colors
	result.PaletteState = diag
	result.RawPalette = rawPalette
	if rawPalette != "" {
		result.RawPaletteHTML = looksLikeMarkup(rawPalette)
	}

	return result
}

// normalizeBrandVoice はブランドボイスのサブ構造を正規化する。
// オブジェクトでない場合はnilを返す。
func normalizeBrandVoice(v any) *model.BrandVoice {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}

	return &model.BrandVoice{
		TargetAudience: asString(m["target_audience"]),
		Topics:         asStringSlice(m["topics"]),
		Tones:          asStringSlice(m["tones"]),
		LanguageTypes:  asStringSlice(m["language_types"]),
		Language:       asString(m["language"]),
	}
}

// normalizeAdditionalInfo は追加情報マップを正規化する。
// 値に含まれる文字列は再帰的にサニタイズする。オブジェクトでない場合はnil。
func (n *Normalizer) normalizeAdditionalInfo(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = n.sanitizeValue(val)
	}
	return out
}

// sanitizeValue は値に含まれる文字列を再帰的にサニタイズする。
func (n *Normalizer) sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return n.sanitizer.Sanitize(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = n.sanitizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = n.sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// asString はJSON値を文字列として取り出す。文字列でない場合は空文字列。
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat はJSON値を数値として取り出す。数値でない場合は0。
func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

// asStringSlice はJSON値を文字列スライスとして取り出す。
// リスト中の文字列以外の要素は読み飛ばす。
func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
