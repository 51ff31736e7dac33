// Package generator はプロンプトから画像を生成します。
// 登録されたプロバイダを順に1回ずつ試し、すべて失敗したら1つのエラーにまとめて返します。
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/imgutil"
	"github.com/shouni/artconnect-kit/pkg/metrics"
)

// ErrAllProvidersFailed はすべてのプロバイダが失敗したことを示します。
var ErrAllProvidersFailed = errors.New("すべての画像生成プロバイダが失敗しました")

// ErrEmptyPayload はプロバイダが空の画像を返したことを示します。
var ErrEmptyPayload = errors.New("画像データが空です")

// ProviderError は1つのプロバイダの失敗です。
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Options は Generator の任意設定です。
type Options struct {
	// Timeout は1プロバイダあたりの上限時間です。0 なら呼び出し元の ctx に従います。
	Timeout     time.Duration
	AspectRatio string
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Generator は順序付きのプロバイダ一覧で画像を生成します。
type Generator struct {
	providers   []Provider
	timeout     time.Duration
	aspectRatio string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New は Generator を生成します。プロバイダが1つも無ければエラーです。
func New(providers []Provider, opts Options) (*Generator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("画像生成プロバイダが1つも設定されていません")
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("providers[%d] is nil", i)
		}
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = DefaultAspectRatio
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{
		providers:   providers,
		timeout:     opts.Timeout,
		aspectRatio: opts.AspectRatio,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With("component", "generator"),
	}, nil
}

// Providers は試行順のプロバイダ名を返します。
func (g *Generator) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate は最終プロンプトを組み立て、プロバイダを順に試します。
// ctx がキャンセルされた場合は ctx.Err() を返し、後続のプロバイダは試しません。
func (g *Generator) Generate(ctx context.Context, req domain.ImageGenerationRequest, cred config.Credential) (*domain.ImageResponse, error) {
	spec := PromptSpec{
		FinalPrompt: BuildFinalPrompt(req.Prompt, req.StyleModifier),
		AspectRatio: req.AspectRatio,
		Seed:        req.Seed,
		Credential:  cred,
	}
	if spec.AspectRatio == "" {
		spec.AspectRatio = g.aspectRatio
	}

	var failures []error
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.RequiresCredential() && !cred.Present() {
			g.metrics.ProviderAttempt(p.Name(), metrics.OutcomeSkipped, 0)
			failures = append(failures, &ProviderError{Provider: p.Name(), Err: config.ErrNoCredential})
			continue
		}

		started := time.Now()
		resp, err := g.try(ctx, p, spec)
		elapsed := time.Since(started)
		if err == nil {
			g.metrics.ProviderAttempt(p.Name(), metrics.OutcomeSuccess, elapsed)
			g.logger.InfoContext(ctx, "画像を生成しました", "provider", p.Name(), "bytes", len(resp.Data), "elapsed", elapsed)
			return resp, nil
		}

		g.metrics.ProviderAttempt(p.Name(), metrics.OutcomeFailure, elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.WarnContext(ctx, "画像生成プロバイダが失敗したため次を試します", "provider", p.Name(), "error", err)
		failures = append(failures, &ProviderError{Provider: p.Name(), Err: err})
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(failures...))
}

func (g *Generator) try(ctx context.Context, p Provider, spec PromptSpec) (*domain.ImageResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := p.Generate(ctx, spec)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrEmptyPayload
	}
	mimeType, _, _, err := imgutil.Sniff(resp.Data)
	if err != nil {
		return nil, err
	}
	resp.MimeType = mimeType
	resp.Provider = p.Name()
	return resp, nil
}

// GenerateOrNil はキーが無いときに nil を返す簡易版です。エラーは投げません。
// キーがある場合は Generate と同じくプロバイダを順に試し、失敗時はエラーを返します。
func (g *Generator) GenerateOrNil(ctx context.Context, prompt string, cred config.Credential) (*domain.ImageResponse, error) {
	if !cred.Present() {
		return nil, nil
	}
	return g.Generate(ctx, domain.ImageGenerationRequest{Prompt: prompt}, cred)
}

// IdeaPreview は工作アイデアの見本画像を生成します。失敗した場合は nil を返します。
func (g *Generator) IdeaPreview(ctx context.Context, title, description string, cred config.Credential) *domain.ImageResponse {
	prompt := fmt.Sprintf("Children's art project illustration: %s. %s", title, description)
	resp, err := g.Generate(ctx, domain.ImageGenerationRequest{Prompt: prompt}, cred)
	if err != nil {
		g.logger.WarnContext(ctx, "アイデア見本画像の生成に失敗しました", "title", title, "error", err)
		return nil
	}
	return resp
}
