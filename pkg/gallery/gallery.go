// Package gallery は作品レコードの保存と、公開範囲ごとのライブ購読を提供します。
//
// 取得はストア側で作成日時の降順・最新 WindowSize 件に絞り、学年や検索語などの
// 絞り込みはその窓の中でだけ行います。履歴全体からの絞り込みではありません。
package gallery

import (
	"context"
	"errors"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

// WindowSize はストアから取得する最新件数です。
const WindowSize = 50

// DefaultAuthorName は生成パネルから保存した作品の作者表示名です。
const DefaultAuthorName = "AI & Bé"

var (
	// ErrNotConfigured はストアが初期化されていないことを示します。再試行しても解決しません。
	ErrNotConfigured = errors.New("ギャラリーストアが設定されていません")
	ErrNotFound      = errors.New("作品が見つかりません")
	// ErrUnauthenticated は保存に必要な利用者IDが無いことを示します。
	ErrUnauthenticated = errors.New("サインインが必要です")
	// ErrForbidden は所有者以外による変更を示します。
	ErrForbidden = errors.New("この作品を変更する権限がありません")
)

// Scope は購読の範囲です。
type Scope string

const (
	// ScopeCommunity は公開作品だけを対象にします。
	ScopeCommunity Scope = "community"
	// ScopeMine は指定した所有者の作品を公開範囲に関係なく対象にします。
	ScopeMine Scope = "mine"
)

// ParseScope は文字列を Scope に変換します。空は community です。
func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case "", ScopeCommunity:
		return ScopeCommunity, true
	case ScopeMine:
		return ScopeMine, true
	default:
		return "", false
	}
}

// Where はストア側で評価する条件です。空の項目は条件になりません。
type Where struct {
	UserID     string
	Visibility domain.Visibility
}

// Matches は a が条件を満たすかを返します。
func (w Where) Matches(a *domain.Artwork) bool {
	if w.UserID != "" && a.UserID != w.UserID {
		return false
	}
	if w.Visibility != "" && a.Visibility != w.Visibility {
		return false
	}
	return true
}

// Backend は作品のドキュメントストアです。
// Insert は ID と作成日時をストア側で割り当て、Query は作成日時の降順で返します。
type Backend interface {
	Insert(ctx context.Context, art *domain.Artwork) error
	Get(ctx context.Context, id string) (*domain.Artwork, error)
	Query(ctx context.Context, where Where, limit int) ([]domain.Artwork, error)
	UpdateVisibility(ctx context.Context, id string, v domain.Visibility) error
	Delete(ctx context.Context, id string) error
	Close() error
}
