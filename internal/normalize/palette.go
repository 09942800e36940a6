package normalize

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/hitoshi/sitelens/internal/model"
)

// repairPalette はカラーパレットフィールドを修復する。
//
// リモートサービスはcolor_paletteを構造化リストで返すのが正しい挙動だが、
// 生成過程の不具合でHTML断片の生文字列として届くことがある。
// 修復規則:
//  1. 文字列で届いた場合は全体を壊れたデータとして扱い、色の抽出は試みない。
//     診断表示のために生文字列をそのまま返す。
//  2. リストの場合はhex_codeキーを持つオブジェクトのみを残し、
//     混入した生文字列要素はエラーにせず読み飛ばす。
//  3. rgbが欠損または3要素の数値列でないレコードには(0,0,0)のセンチネルを
//     設定し、RGBKnown=falseで「不明」を区別する。
//  4. フィルタ後に有効なレコードが0件の場合は、元からパレットが無かった場合と
//     区別できる診断フラグを設定する。
//
// いかなる形状の入力に対しても失敗しない。
func repairPalette(v any) ([]model.ColorRecord, model.PaletteDiagnostic, string) {
	switch palette := v.(type) {
	case nil:
		return nil, model.PaletteAbsent, ""

	case string:
		return nil, model.PaletteMalformed, palette

	case []any:
		if len(palette) == 0 {
			return nil, model.PaletteAbsent, ""
		}

		var colors []model.ColorRecord
		for _, item := range palette {
			record, ok := item.(map[string]any)
			if !ok {
				// 混入したHTML断片等の文字列要素は黙って読み飛ばす
				continue
			}

			hexCode := asString(record["hex_code"])
			if hexCode == "" {
				continue
			}

			color := model.ColorRecord{HexCode: hexCode}
			if rgb, ok := asRGB(record["rgb"]); ok {
				color.RGB = rgb
				color.RGBKnown = true
			}
			colors = append(colors, color)
		}

		if len(colors) == 0 {
			return nil, model.PaletteNoValidColors, ""
		}
		return colors, model.PaletteOK, ""

	default:
		// オブジェクトや数値など予期しない形状: 診断表示用にJSON表現を残す
		raw, err := json.Marshal(palette)
		if err != nil {
			return nil, model.PaletteMalformed, ""
		}
		return nil, model.PaletteMalformed, string(raw)
	}
}

// asRGB はJSON値を3要素のRGBタプルとして取り出す。
// 3要素以上の数値リストの場合は先頭3要素を採用する。
func asRGB(v any) ([3]int, bool) {
	items, ok := v.([]any)
	if !ok || len(items) < 3 {
		return [3]int{}, false
	}

	var rgb [3]int
	for i := 0; i < 3; i++ {
		f, ok := items[i].(float64)
		if !ok {
			return [3]int{}, false
		}
		rgb[i] = int(f)
	}
	return rgb, true
}

// looksLikeMarkup は文字列がHTMLマークアップらしいかをトークナイザで判定する。
// 開始・終了・自己終了タグが1つでも現れればマークアップとみなす。
// 診断表示のレンダリング方法（コードブロックのハイライト言語）の決定にのみ使用し、
// 修復規則そのものには影響しない。
func looksLikeMarkup(s string) bool {
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}
