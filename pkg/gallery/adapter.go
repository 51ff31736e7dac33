package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/metrics"
)

// Options は Adapter の任意設定です。
type Options struct {
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Adapter は Backend の上に保存・購読・公開範囲の変更を載せます。
// backend が nil の場合も生成でき、その場合は書き込みが ErrNotConfigured を返し、
// 購読には空のリストが届きます。
type Adapter struct {
	backend Backend
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	notify chan struct{}
}

// NewAdapter は Adapter を生成します。
func NewAdapter(backend Backend, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		backend:  backend,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "gallery"),
		watchers: make(map[*watcher]struct{}),
	}
}

// Configured はストアが使えるかを返します。
func (a *Adapter) Configured() bool {
	return a != nil && a.backend != nil
}

// Save は作品を1件保存し、ストアが割り当てた ID を返します。
// 公開範囲が空なら public、作者名と保存元が空なら生成パネル由来の既定値を入れます。
func (a *Adapter) Save(ctx context.Context, art domain.Artwork) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	if art.UserID == "" {
		return "", ErrUnauthenticated
	}
	if art.Visibility == "" {
		art.Visibility = domain.VisibilityPublic
	}
	if !art.Visibility.Valid() {
		return "", fmt.Errorf("不正な公開範囲です: %q", art.Visibility)
	}
	if art.AuthorName == "" {
		art.AuthorName = DefaultAuthorName
	}
	if art.SavedFrom == "" {
		art.SavedFrom = domain.SavedFromGenerator
	}

	err := a.backend.Insert(ctx, &art)
	a.metrics.ArtworkSaved(err)
	if err != nil {
		return "", fmt.Errorf("作品の保存に失敗しました: %w", err)
	}
	a.logger.InfoContext(ctx, "作品を保存しました", "id", art.ID, "user", art.UserID, "visibility", art.Visibility)
	a.broadcast()
	return art.ID, nil
}

// Get は1件取得します。
func (a *Adapter) Get(ctx context.Context, id string) (*domain.Artwork, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	return a.backend.Get(ctx, id)
}

// Snapshot は現在の窓を取得して絞り込んだ結果を返します。
// ストアが使えない・取得に失敗した場合は空のリストです。
func (a *Adapter) Snapshot(ctx context.Context, scope Scope, ownerID string, f Filters) []domain.Artwork {
	empty := []domain.Artwork{}
	if !a.Configured() {
		return empty
	}
	where, ok := whereFor(scope, ownerID)
	if !ok {
		return empty
	}
	list, err := a.backend.Query(ctx, where, WindowSize)
	if err != nil {
		a.logger.WarnContext(ctx, "ギャラリーの取得に失敗しました", "scope", scope, "error", err)
		return empty
	}
	return f.Apply(list)
}

func whereFor(scope Scope, ownerID string) (Where, bool) {
	switch scope {
	case ScopeCommunity:
		return Where{Visibility: domain.VisibilityPublic}, true
	case ScopeMine:
		if ownerID == "" {
			return Where{}, false
		}
		return Where{UserID: ownerID}, true
	default:
		return Where{}, false
	}
}

// Subscribe は初回のスナップショットを届け、その後ストアが変わるたびに再取得して届けます。
// fn は専用のゴルーチンから逐次呼ばれます。返り値の関数か ctx の終了で購読を止めます。
func (a *Adapter) Subscribe(ctx context.Context, scope Scope, ownerID string, f Filters, fn func([]domain.Artwork)) func() {
	w := &watcher{notify: make(chan struct{}, 1)}
	a.mu.Lock()
	a.watchers[w] = struct{}{}
	a.mu.Unlock()
	a.metrics.SubscriberAdded()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(a.Snapshot(ctx, scope, ownerID, f))
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				if ctx.Err() != nil {
					return
				}
				fn(a.Snapshot(ctx, scope, ownerID, f))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			a.mu.Lock()
			delete(a.watchers, w)
			a.mu.Unlock()
			a.metrics.SubscriberRemoved()
			<-done
		})
	}
}

// broadcast は全購読者に変更を通知します。未処理の通知があれば1つにまとめます。
func (a *Adapter) broadcast() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for w := range a.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// MutationOption は変更系操作の任意条件です。
type MutationOption func(*mutation)

type mutation struct {
	ownerID string
}

// OwnedBy は対象作品の所有者が uid であることを要求します。
func OwnedBy(uid string) MutationOption {
	return func(m *mutation) { m.ownerID = uid }
}

func (a *Adapter) checkOwner(ctx context.Context, id string, opts []MutationOption) (*domain.Artwork, error) {
	var m mutation
	for _, opt := range opts {
		opt(&m)
	}
	art, err := a.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ownerID != "" && art.UserID != m.ownerID {
		return nil, ErrForbidden
	}
	return art, nil
}

// SetVisibility は公開範囲を v に更新します。
func (a *Adapter) SetVisibility(ctx context.Context, id string, v domain.Visibility, opts ...MutationOption) error {
	if !a.Configured() {
		return ErrNotConfigured
	}
	if !v.Valid() {
		return fmt.Errorf("不正な公開範囲です: %q", v)
	}
	if _, err := a.checkOwner(ctx, id, opts); err != nil {
		return err
	}
	if err := a.backend.UpdateVisibility(ctx, id, v); err != nil {
		return err
	}
	a.broadcast()
	return nil
}

// ToggleVisibility は公開範囲を反転し、更新後の値を返します。
func (a *Adapter) ToggleVisibility(ctx context.Context, id string, opts ...MutationOption) (domain.Visibility, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	art, err := a.checkOwner(ctx, id, opts)
	if err != nil {
		return "", err
	}
	next := art.Visibility.Toggle()
	if err := a.backend.UpdateVisibility(ctx, id, next); err != nil {
		return "", err
	}
	a.logger.InfoContext(ctx, "公開範囲を変更しました", "id", id, "visibility", next)
	a.broadcast()
	return next, nil
}

// Remove は作品を削除します。
func (a *Adapter) Remove(ctx context.Context, id string, opts ...MutationOption) error {
	if !a.Configured() {
		return ErrNotConfigured
	}
	if _, err := a.checkOwner(ctx, id, opts); err != nil {
		return err
	}
	if err := a.backend.Delete(ctx, id); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "作品を削除しました", "id", id)
	a.broadcast()
	return nil
}

// Close はストアを閉じます。
func (a *Adapter) Close() error {
	if !a.Configured() {
		return nil
	}
	return a.backend.Close()
}
