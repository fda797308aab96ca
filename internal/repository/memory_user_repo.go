package repository

import (
	"context"

	"github.com/hitoshi/devpress/internal/model"
)

// MemoryUserRepo は固定リストによるユーザーディレクトリ。
// 永続化を持たないモック実装で、リストはO(n)で走査する（件数は数件想定）。
type MemoryUserRepo struct {
	users []model.User
}

// NewMemoryUserRepo は既定の2ユーザー（管理者1名・一般1名）を持つ
// ディレクトリを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users: []model.User{
			{
				ID:       "1",
				Name:     "John Doe",
				Email:    "john@example.com",
				Username: "johndoe",
				Avatar:   "/placeholder.svg?height=40&width=40",
				Role:     model.RoleAdmin,
			},
			{
				ID:       "2",
				Name:     "Jane Smith",
				Email:    "jane@example.com",
				Username: "janesmith",
				Avatar:   "/placeholder.svg?height=40&width=40",
				Role:     model.RoleUser,
			},
		},
	}
}

// NewMemoryUserRepoWithUsers は任意のユーザーリストを持つディレクトリを生成する。
// テスト用。
func NewMemoryUserRepoWithUsers(users []model.User) *MemoryUserRepo {
	return &MemoryUserRepo{users: users}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。
// 見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, nil
}
