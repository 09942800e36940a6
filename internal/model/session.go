// Package model はドメインモデルを定義する。
package model

import "time"

// Session はユーザーのログインセッションを表す。
// 認証成功時に発行され、ログアウトまたは期限切れで破棄される。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
