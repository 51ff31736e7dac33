// Package studio は1つの授業に対する生成セッションを組み立てます。
//
// 資格情報の解決 → 翻訳 → 画像生成 → 圧縮 → ギャラリー保存 の順に処理し、
// 各段階の状態を下書きとして残します。資格情報と下書きは利用者ID（owner）ごとに分かれます。
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/curriculum"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/draft"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/generator"
	"github.com/shouni/artconnect-kit/pkg/imgutil"
	"github.com/shouni/artconnect-kit/pkg/translator"
)

const defaultRateBurst = 2

var (
	// ErrEmptyPrompt は翻訳・生成に渡す文が空であることを示します。
	ErrEmptyPrompt = errors.New("プロンプトが空です")
	// ErrIdeaNotFound は授業に該当するアイデアが無いことを示します。
	ErrIdeaNotFound = errors.New("アイデアが見つかりません")
	// ErrNoPreview は保存する画像が無いことを示します。
	ErrNoPreview = errors.New("保存するプレビュー画像がありません")
	// ErrSuperseded は後続の生成要求によって中断されたことを示します。
	ErrSuperseded = errors.New("新しい生成要求により中断されました")
	// ErrRateLimited は生成回数の上限により待機できなかったことを示します。
	ErrRateLimited = errors.New("生成回数の上限に達しました")
)

// Translator はベトナム語の文を英語プロンプトにします。*translator.Translator が満たします。
type Translator interface {
	Translate(ctx context.Context, req translator.Request, cred config.Credential) string
}

// Deps は Studio が組み立てる部品です。Gallery は nil でも構いません。
type Deps struct {
	Resolver   *config.Resolver
	Translator Translator
	Generator  generator.ImageGenerator
	Gallery    *gallery.Adapter
	Drafts     *draft.Persister
}

// Options は Studio の任意設定です。
type Options struct {
	Compression imgutil.Options
	// RatePerMinute は1分あたりの生成回数の上限です。0 以下なら制限しません。
	RatePerMinute int
	Burst         int
	Logger        *slog.Logger
}

// Studio は生成パイプラインです。
type Studio struct {
	resolver   *config.Resolver
	translator Translator
	generator  generator.ImageGenerator
	gallery    *gallery.Adapter
	drafts     *draft.Persister
	limiter    *rate.Limiter
	compress   imgutil.Options
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]inflightCall
	seq      uint64
}

type inflightCall struct {
	seq    uint64
	cancel context.CancelCauseFunc
}

// New は Studio を生成します。
func New(deps Deps, opts Options) (*Studio, error) {
	if deps.Resolver == nil || deps.Translator == nil || deps.Generator == nil || deps.Drafts == nil {
		return nil, fmt.Errorf("studio の依存関係が不足しています")
	}
	if deps.Gallery == nil {
		deps.Gallery = gallery.NewAdapter(nil, gallery.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Compression == (imgutil.Options{}) {
		opts.Compression = imgutil.DefaultOptions()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = defaultRateBurst
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), burst)
	}

	return &Studio{
		resolver:   deps.Resolver,
		translator: deps.Translator,
		generator:  deps.Generator,
		gallery:    deps.Gallery,
		drafts:     deps.Drafts,
		limiter:    limiter,
		compress:   opts.Compression,
		logger:     opts.Logger.With("component", "studio"),
		inflight:   make(map[string]inflightCall),
	}, nil
}

// Credential は owner にとっての現在の資格情報を返します。
func (s *Studio) Credential(ctx context.Context, owner string) config.Credential {
	return s.resolver.Resolve(ctx, owner)
}

// Translate は nativeText を英語プロンプトにし、owner の下書きへ両方の文と画風を記録します。
func (s *Studio) Translate(ctx context.Context, owner string, ref domain.LessonRef, nativeText string, style domain.Style) (domain.Draft, error) {
	nativeText = strings.TrimSpace(nativeText)
	if nativeText == "" {
		return domain.Draft{}, ErrEmptyPrompt
	}
	cred := s.resolver.Resolve(ctx, owner)
	en := s.translator.Translate(ctx, translator.Request{
		NativeText: nativeText,
		Style:      style,
		Grade:      ref.Grade,
		LessonName: ref.Lesson.Name,
	}, cred)

	return s.observe(ctx, owner, ref.Lesson.ID, func(d *domain.Draft) {
		d.PromptTextVN = nativeText
		d.PromptTextEN = en
		d.Style = string(style)
	}), nil
}

// SelectIdea は授業のアイデアを選び、その文を翻訳します。
func (s *Studio) SelectIdea(ctx context.Context, owner string, ref domain.LessonRef, ideaID string, style domain.Style) (domain.Draft, error) {
	idea, ok := curriculum.FindIdea(ref.Lesson.Name, ideaID)
	if !ok {
		return domain.Draft{}, fmt.Errorf("%w: %s", ErrIdeaNotFound, ideaID)
	}
	return s.Translate(ctx, owner, ref, idea.NativeText(), style)
}

// GenerateResult は生成の結果です。
type GenerateResult struct {
	Image   *domain.ImageResponse
	DataURI string
	Draft   domain.Draft
}

// Generate は英語プロンプトから画像を生成し、プレビューとして下書きに保存します。
// 同じ owner の生成中に次の Generate が呼ばれると、先の呼び出しは ErrSuperseded で終わります。
func (s *Studio) Generate(ctx context.Context, owner string, ref domain.LessonRef, englishPrompt string, style domain.Style) (*GenerateResult, error) {
	englishPrompt = strings.TrimSpace(englishPrompt)
	if englishPrompt == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, done := s.begin(ctx, owner)
	defer done()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.interrupted(ctx, fmt.Errorf("%w: %v", ErrRateLimited, err))
	}

	cred := s.resolver.Resolve(ctx, owner)
	img, err := s.generator.Generate(ctx, domain.ImageGenerationRequest{
		Prompt:        englishPrompt,
		StyleModifier: style.Modifier(),
	}, cred)
	if err != nil {
		return nil, s.interrupted(ctx, err)
	}

	uri := imgutil.EncodeDataURI(img.MimeType, img.Data)
	d := s.observe(ctx, owner, ref.Lesson.ID, func(d *domain.Draft) {
		d.PreviewBase64 = &uri
		d.PromptTextEN = englishPrompt
		d.Style = string(style)
		d.IsSaved = false
		d.SavedDocID = nil
	})
	return &GenerateResult{Image: img, DataURI: uri, Draft: d}, nil
}

// begin は owner の進行中の生成を中断し、新しい生成用の ctx を返します。
func (s *Studio) begin(parent context.Context, owner string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	s.mu.Lock()
	if prev, ok := s.inflight[owner]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.seq++
	mine := s.seq
	s.inflight[owner] = inflightCall{seq: mine, cancel: cancel}
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if cur, ok := s.inflight[owner]; ok && cur.seq == mine {
			delete(s.inflight, owner)
		}
		s.mu.Unlock()
		cancel(nil)
	}
}

func (s *Studio) interrupted(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		return ErrSuperseded
	}
	return err
}

// SaveInput は保存要求です。画像やプロンプトが空なら UserID の下書きの値を使います。
type SaveInput struct {
	UserID       string
	AuthorName   string
	Lesson       domain.LessonRef
	Visibility   domain.Visibility
	ImageDataURI string
	PromptTextEN string
	PromptTextVN string
	Style        domain.Style
}

// Save はプレビュー画像を圧縮してギャラリーへ保存し、下書きに保存済みの印を付けます。
func (s *Studio) Save(ctx context.Context, in SaveInput) (*domain.Artwork, error) {
	if !s.gallery.Configured() {
		return nil, gallery.ErrNotConfigured
	}
	if in.UserID == "" {
		return nil, gallery.ErrUnauthenticated
	}

	if d, ok, err := s.drafts.Load(ctx, in.UserID, in.Lesson.Lesson.ID); err != nil {
		s.logger.WarnContext(ctx, "下書きを読み込めませんでした", "lesson", in.Lesson.Lesson.ID, "error", err)
	} else if ok {
		if in.ImageDataURI == "" && d.HasPreview() {
			in.ImageDataURI = *d.PreviewBase64
		}
		if in.PromptTextEN == "" {
			in.PromptTextEN = d.PromptTextEN
		}
		if in.PromptTextVN == "" {
			in.PromptTextVN = d.PromptTextVN
		}
		if in.Style == "" {
			in.Style = domain.Style(d.Style)
		}
	}
	if in.ImageDataURI == "" {
		return nil, ErrNoPreview
	}

	raw, _, err := imgutil.DecodeDataURI(in.ImageDataURI)
	if err != nil {
		return nil, err
	}
	compressed, err := imgutil.CompressToDataURI(raw, s.compress)
	if err != nil {
		return nil, err
	}

	art := domain.Artwork{
		ImagePreviewBase64: compressed,
		PromptTextEN:       in.PromptTextEN,
		PromptTextVN:       in.PromptTextVN,
		Style:              string(in.Style),
		LessonName:         in.Lesson.Lesson.Name,
		TopicName:          in.Lesson.Topic.Name,
		Grade:              in.Lesson.Grade,
		UserID:             in.UserID,
		AuthorName:         in.AuthorName,
		Visibility:         in.Visibility,
		SavedFrom:          domain.SavedFromGenerator,
	}
	id, err := s.gallery.Save(ctx, art)
	if err != nil {
		return nil, err
	}

	s.observe(ctx, in.UserID, in.Lesson.Lesson.ID, func(d *domain.Draft) {
		d.IsSaved = true
		d.SavedDocID = &id
	})
	return s.gallery.Get(ctx, id)
}

// Resume は owner の授業の下書きがあれば返します。
func (s *Studio) Resume(ctx context.Context, owner, lessonID string) (*domain.Draft, bool) {
	d, ok, err := s.drafts.Load(ctx, owner, lessonID)
	if err != nil {
		s.logger.WarnContext(ctx, "下書きを読み込めませんでした", "lesson", lessonID, "error", err)
		return nil, false
	}
	return d, ok
}

// observe は下書きを更新します。下書きの保存失敗はパイプラインを止めません。
func (s *Studio) observe(ctx context.Context, owner, lessonID string, fn func(*domain.Draft)) domain.Draft {
	d, err := s.drafts.Update(ctx, owner, lessonID, fn)
	if err != nil {
		s.logger.WarnContext(ctx, "下書きの保存に失敗しました", "lesson", lessonID, "error", err)
		fallback := domain.Draft{LessonID: lessonID}
		fn(&fallback)
		return fallback
	}
	return d
}
