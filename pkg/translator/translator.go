// Package translator はベトナム語のアイデア文を画像生成用の英語プロンプトに変換します。
package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/metrics"
)

const DefaultModel = "gemini-2.0-flash"

// ModelSource は資格情報に応じたテキストモデルを提供します。adapters.ClientPool が満たします。
type ModelSource interface {
	Gemini(ctx context.Context, cred config.Credential) (gemini.GenerativeModel, error)
}

// Request は翻訳の入力です。
type Request struct {
	NativeText string
	Style      domain.Style
	Grade      int
	LessonName string
}

// Options は Translator の任意設定です。
type Options struct {
	Model string
	// CacheSize が正なら LRU、0 なら期限なしのキャッシュ。Cache を指定した場合は無視されます。
	CacheSize int
	Cache     Cache
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Translator struct {
	models  ModelSource
	model   string
	cache   Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New は Translator を生成します。
func New(models ModelSource, opts Options) *Translator {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Cache == nil {
		opts.Cache = NewCache(opts.CacheSize)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Translator{
		models:  models,
		model:   opts.Model,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "translator"),
	}
}

// Translate は英語プロンプトを返します。失敗してもエラーは返さず、テンプレート文字列に落とします。
func (t *Translator) Translate(ctx context.Context, req Request, cred config.Credential) string {
	if !cred.Present() || t.models == nil {
		t.metrics.Translation(metrics.TranslationNoKey)
		return TemplatePrompt(req)
	}

	key := CacheKey(req)
	if v, ok := t.cache.Get(key); ok {
		if s, ok := v.(string); ok {
			t.metrics.Translation(metrics.TranslationCacheHit)
			return s
		}
	}

	text, err := t.generate(ctx, cred, SystemInstruction(req.Style, req.Grade), UserPrompt(req))
	if err == nil && text == "" {
		err = fmt.Errorf("空の応答が返されました")
	}
	if err != nil {
		t.logger.WarnContext(ctx, "プロンプトの翻訳に失敗したためテンプレートを使用します",
			"lesson", req.LessonName, "style", req.Style, "error", err)
		t.metrics.Translation(metrics.TranslationFallback)
		return FallbackPrompt(req)
	}

	t.cache.Set(key, text, 0)
	t.metrics.Translation(metrics.TranslationNetwork)
	return text
}

// generate は1回だけモデルを呼び出し、応答テキストを返します。再試行はしません。
func (t *Translator) generate(ctx context.Context, cred config.Credential, system, user string) (string, error) {
	model, err := t.models.Gemini(ctx, cred)
	if err != nil {
		return "", err
	}

	var resp *gemini.Response
	if system == "" {
		resp, err = model.GenerateContent(ctx, t.model, user)
	} else {
		resp, err = model.GenerateWithParts(ctx, t.model, []*genai.Part{{Text: user}}, gemini.GenerateOptions{SystemPrompt: system})
	}
	if err != nil {
		return "", fmt.Errorf("テキスト生成に失敗しました: %w", err)
	}
	return adapters.ResponseText(resp), nil
}

// CacheKey は (学年, 課題名, スタイル, 原文) の複合キーです。
func CacheKey(req Request) string {
	return fmt.Sprintf("%d|%s|%s|%s", req.Grade, req.LessonName, req.Style, req.NativeText)
}

// TemplatePrompt はキーが無いときの決定的なプロンプトです。
func TemplatePrompt(req Request) string {
	return fmt.Sprintf("Kids drawing of %s, %s, %s style, white background, no text", req.LessonName, req.NativeText, req.Style)
}

// FallbackPrompt は翻訳に失敗したときのプロンプトです。
func FallbackPrompt(req Request) string {
	return fmt.Sprintf("Illustration of %s: %s, %s style", req.LessonName, req.NativeText, req.Style)
}

// StyleInstruction はスタイルごとの固定の指示文です。線画系は白黒・陰影なしを強制します。
func StyleInstruction(style domain.Style, grade int) string {
	switch {
	case style.IsLineArt():
		return "Strictly black and white outline only, coloring book page style, clean lines, no shading, no gray fill, white background."
	case style == domain.StylePaperCutout:
		return "Paper cutout craft style, layered paper texture, soft shadows for depth, vibrant colors."
	case style == domain.Style3DCartoon:
		return "3D blender render, cute, plasticine texture, soft lighting, isometric view."
	default:
		return fmt.Sprintf("%s style, vibrant colors, cheerful atmosphere suitable for grade %d children.", style, grade)
	}
}

// SystemInstruction は役割・タスク・全体制約・スタイル指示をまとめたシステム指示です。
func SystemInstruction(style domain.Style, grade int) string {
	var b strings.Builder
	b.WriteString("Role: Expert AI Art Prompter for Primary Education.\n")
	b.WriteString("Task: Convert the following Vietnamese idea into a high-quality English prompt for image generation.\n")
	b.WriteString("Constraints: White background (unless specified), NO text, NO words, NO watermarks, NO signature, Safe for kids, High quality 8k.\n")
	b.WriteString("Style: ")
	b.WriteString(StyleInstruction(style, grade))
	return b.String()
}

// UserPrompt は原文と学年・課題の文脈です。
func UserPrompt(req Request) string {
	return fmt.Sprintf("Input Idea (Vietnamese): %q\nContext: Grade %d Lesson %q\nOutput: ONLY the final English prompt string.",
		req.NativeText, req.Grade, req.LessonName)
}
