// Package directory はログイン画面で選択できるユーザーの一覧と検索を提供します。
package directory

import (
	"context"
	"encoding/gob"
)

// User はログイン可能なユーザーを表します。
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func init() {
	// セッションストア（securecookie/gob）に User をそのまま保存するために登録する
	gob.Register(User{})
}

// Finder はユーザーの検索手段です。
// 実データストアに差し替える場合もこのインターフェースを実装します。
type Finder interface {
	FindByID(ctx context.Context, id int) (User, bool)
	All(ctx context.Context) []User
}

// Static は起動時に固定されたユーザー一覧です。読み取り専用なので並行アクセスで共有できます。
type Static struct {
	users []User
	byID  map[int]User
}

// NewStatic は与えられたユーザー一覧から Static を作成します。
// ID が重複している場合は先に現れたものを優先します。
func NewStatic(users []User) *Static {
	s := &Static{
		users: make([]User, 0, len(users)),
		byID:  make(map[int]User, len(users)),
	}
	for _, u := range users {
		if _, exists := s.byID[u.ID]; exists {
			continue
		}
		s.users = append(s.users, u)
		s.byID[u.ID] = u
	}
	return s
}

// Default は組み込みのユーザー一覧を返します。
func Default() *Static {
	return NewStatic([]User{
		{ID: 1, Name: "山田太郎"},
		{ID: 2, Name: "鈴木花子"},
		{ID: 3, Name: "佐藤一郎"},
		{ID: 4, Name: "田中優子"},
		{ID: 5, Name: "中村健一"},
	})
}

// FindByID は ID に一致するユーザーを返します。
func (s *Static) FindByID(_ context.Context, id int) (User, bool) {
	u, ok := s.byID[id]
	return u, ok
}

// All は登録順のユーザー一覧のコピーを返します。
func (s *Static) All(_ context.Context) []User {
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}
