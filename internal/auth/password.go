// Package auth は共有シークレットによるパスワード認証とセッション発行を提供する。
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashPassword はパスワードのHMAC-SHA256ハッシュを16進文字列で返す。
// 同一の入力に対して常に同一の出力を返す（決定的）。
// 保存用ハッシュの生成とログイン時の検証の両方で使用する。
func HashPassword(password, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPassword はパスワードを保存済みハッシュと照合する。
// ハッシュを再計算し、タイミングセーフな比較で検証する。
// シークレットキーが空の場合は常にfalseを返す（フェイルクローズ）。
// 保存済みハッシュが不正な形式の場合も単に一致しないだけでpanicしない。
func VerifyPassword(password, storedHash, secretKey string) bool {
	if secretKey == "" {
		return false
	}
	computed := HashPassword(password, secretKey)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}
