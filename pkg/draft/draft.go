// Package draft は生成中セッションのスナップショットを KV ストアに保存します。
// 利用者ごとに1つのスロットを持ち、授業ごとの履歴は持たず、別の授業の下書きで上書きされます。
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/kvstore"
)

// Key は下書きを保存する KV のキーの接頭辞です。
const Key = "artconnect:lastDraft"

// KeyFor は owner のスロットのキーを返します。owner が空ならCLI用の共有スロットです。
func KeyFor(owner string) string {
	if owner == "" {
		return Key
	}
	return Key + ":" + owner
}

// Persister は下書きの保存と復元を担います。
type Persister struct {
	kv     kvstore.Store
	now    func() time.Time
	logger *slog.Logger

	// スロットのキーごとの *sync.Mutex
	locks sync.Map
}

// NewPersister は kv を保存先にした Persister を生成します。
func NewPersister(kv kvstore.Store, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{kv: kv, now: time.Now, logger: logger.With("component", "draft")}
}

func (p *Persister) lock(key string) func() {
	v, _ := p.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Save は d にタイムスタンプを打って owner のスロットに保存し、保存した値を返します。
func (p *Persister) Save(ctx context.Context, owner string, d domain.Draft) (domain.Draft, error) {
	key := KeyFor(owner)
	defer p.lock(key)()
	return p.save(ctx, key, d)
}

func (p *Persister) save(ctx context.Context, key string, d domain.Draft) (domain.Draft, error) {
	d.Timestamp = p.now().UnixMilli()
	raw, err := json.Marshal(d)
	if err != nil {
		return d, fmt.Errorf("下書きのエンコードに失敗しました: %w", err)
	}
	if err := p.kv.Set(ctx, key, string(raw)); err != nil {
		return d, fmt.Errorf("下書きの保存に失敗しました: %w", err)
	}
	return d, nil
}

// Current は owner の下書きを授業に関係なく返します。
// 壊れた値は存在しないものとして扱います。
func (p *Persister) Current(ctx context.Context, owner string) (*domain.Draft, bool, error) {
	return p.current(ctx, KeyFor(owner))
}

func (p *Persister) current(ctx context.Context, key string) (*domain.Draft, bool, error) {
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("下書きの読み込みに失敗しました: %w", err)
	}
	if !ok || raw == "" {
		return nil, false, nil
	}
	var d domain.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		p.logger.WarnContext(ctx, "下書きを解釈できないため無視します", "key", key, "error", err)
		return nil, false, nil
	}
	return &d, true, nil
}

// Load は owner の下書きが lessonID のものである場合だけ返します。
func (p *Persister) Load(ctx context.Context, owner, lessonID string) (*domain.Draft, bool, error) {
	return p.load(ctx, KeyFor(owner), lessonID)
}

func (p *Persister) load(ctx context.Context, key, lessonID string) (*domain.Draft, bool, error) {
	d, ok, err := p.current(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if d.LessonID != lessonID {
		return nil, false, nil
	}
	return d, true, nil
}

// Update は owner の lessonID の下書き（無ければ空の下書き）に fn を適用して保存します。
// 同じスロットへの Update と Save はこのプロセス内で直列化されます。
// 別の授業の下書きは上書きされます。
func (p *Persister) Update(ctx context.Context, owner, lessonID string, fn func(*domain.Draft)) (domain.Draft, error) {
	key := KeyFor(owner)
	defer p.lock(key)()

	d, ok, err := p.load(ctx, key, lessonID)
	if err != nil {
		return domain.Draft{}, err
	}
	if !ok {
		d = &domain.Draft{LessonID: lessonID}
	}
	fn(d)
	return p.save(ctx, key, *d)
}
