// Package repository はユーザーディレクトリへのアクセスインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/devpress/internal/model"
)

// UserRepository はユーザーディレクトリの参照インターフェース。
// 認証サービスはこのインターフェースにのみ依存する。
// 実装はインメモリの固定ディレクトリとPostgreSQLの2種類。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
