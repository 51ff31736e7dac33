package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/artconnect-kit/pkg/kvstore"
)

// OverrideKey は利用者指定のAPIキーを保存するKVのキーの接頭辞です。
// 実際のキーは OverrideKey + ":" + 利用者ID です。
const OverrideKey = "artconnect:apiKey"

const (
	SourceNone        = ""
	SourceOverride    = "override"
	SourceEnvironment = "environment"
)

var (
	// ErrNoCredential は資格情報が利用できないことを示します。
	ErrNoCredential = errors.New("APIキーが設定されていません")
	// ErrNoOwner は利用者指定キーの持ち主が特定できないことを示します。
	ErrNoOwner = errors.New("APIキーの持ち主が特定できません")
)

// OverrideKeyFor は owner の利用者指定キーを保存するKVのキーを返します。
func OverrideKeyFor(owner string) string {
	return OverrideKey + ":" + owner
}

// Credential は解決済みのAPIキーと、その出どころです。
type Credential struct {
	APIKey string
	Source string
}

// Present はキーが利用可能かどうかを返します。
func (c Credential) Present() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Resolver は 利用者指定 → 環境既定 の優先順位でキーを決定します。
// 利用者指定のキーは利用者IDごとに別のスロットに保存され、他の利用者からは見えません。
// 指定が変わるたびに購読者へ通知します。
type Resolver struct {
	kv         kvstore.Store
	defaultKey string
	logger     *slog.Logger

	mu     sync.Mutex
	subs   map[int]func(owner string, c Credential)
	nextID int
}

// NewResolver は Resolver を生成します。kv が nil の場合は既定キーのみを使います。
func NewResolver(kv kvstore.Store, defaultKey string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		kv:         kv,
		defaultKey: strings.TrimSpace(defaultKey),
		logger:     logger.With("component", "credential"),
		subs:       make(map[int]func(string, Credential)),
	}
}

// Resolve は owner にとって有効な資格情報を返します。owner が空なら環境既定のキーだけを見ます。
// KVの読み込みに失敗した場合は既定キーに落とします。
func (r *Resolver) Resolve(ctx context.Context, owner string) Credential {
	if r.kv != nil && owner != "" {
		v, ok, err := r.kv.Get(ctx, OverrideKeyFor(owner))
		if err != nil {
			r.logger.WarnContext(ctx, "利用者指定キーの読み込みに失敗しました", "owner", owner, "error", err)
		} else if ok && strings.TrimSpace(v) != "" {
			return Credential{APIKey: strings.TrimSpace(v), Source: SourceOverride}
		}
	}
	if r.defaultKey != "" {
		return Credential{APIKey: r.defaultKey, Source: SourceEnvironment}
	}
	return Credential{Source: SourceNone}
}

// SetOverride は owner 専用のキーを保存します。空文字は ClearOverride と同じ扱いです。
func (r *Resolver) SetOverride(ctx context.Context, owner, key string) error {
	if owner == "" {
		return ErrNoOwner
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return r.ClearOverride(ctx, owner)
	}
	if r.kv == nil {
		return fmt.Errorf("キーの保存先がありません: %w", ErrNoCredential)
	}
	if err := r.kv.Set(ctx, OverrideKeyFor(owner), key); err != nil {
		return fmt.Errorf("APIキーの保存に失敗しました: %w", err)
	}
	r.logger.InfoContext(ctx, "利用者指定のAPIキーを保存しました", "owner", owner)
	r.publish(ctx, owner)
	return nil
}

// ClearOverride は owner 専用のキーを削除し、既定キーに戻します。
func (r *Resolver) ClearOverride(ctx context.Context, owner string) error {
	if owner == "" {
		return ErrNoOwner
	}
	if r.kv != nil {
		if err := r.kv.Delete(ctx, OverrideKeyFor(owner)); err != nil {
			return fmt.Errorf("APIキーの削除に失敗しました: %w", err)
		}
	}
	r.logger.InfoContext(ctx, "利用者指定のAPIキーを削除しました", "owner", owner)
	r.publish(ctx, owner)
	return nil
}

// Subscribe はキー変更の通知先を登録し、解除関数を返します。
// fn には変更した利用者のIDと、その利用者にとっての新しい資格情報が渡されます。
func (r *Resolver) Subscribe(fn func(owner string, c Credential)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Resolver) publish(ctx context.Context, owner string) {
	cred := r.Resolve(ctx, owner)

	r.mu.Lock()
	fns := make([]func(string, Credential), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(owner, cred)
	}
}
