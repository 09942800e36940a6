package auth

import "strings"

// defaultDemoUser はVALID_USERSが未設定の場合に使用するデモユーザー。
// パスワードは "demo123"（ハッシュはデフォルトシークレットキーによるもの）。
const (
	defaultDemoUsername = "demo"
	defaultDemoHash     = "8c6976e5b5410415bde908bd4dee15dfb167a9c873fc4bb8a81f6f2ab448a918"
)

// ParseValidUsers は "user1:hash1,user2:hash2" 形式の文字列をユーザーマップに変換する。
// 空文字列の場合はデモユーザーのみのマップを返す。
// コロンを含まないエントリは無視する。
func ParseValidUsers(raw string) map[string]string {
	if raw == "" {
		return map[string]string{
			defaultDemoUsername: defaultDemoHash,
		}
	}

	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		username, hash, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		username = strings.TrimSpace(username)
		hash = strings.TrimSpace(hash)
		if username == "" || hash == "" {
			continue
		}
		users[username] = hash
	}

	return users
}
