package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

const (
	DefaultPollinationsURL   = "https://image.pollinations.ai"
	DefaultPollinationsModel = "flux"

	defaultFallbackTimeout = 2 * time.Minute
)

// PollinationsOptions は PollinationsProvider の設定です。
type PollinationsOptions struct {
	BaseURL string
	Model   string
	Width   int
	Height  int
	// SSRFGuard が true なら BaseURL を生成時に検証し、通信も SSRF 対策付きのクライアントで行います。
	SSRFGuard bool
	Timeout   time.Duration
	// HTTPClient が nil なら httpkit.New で再試行なしのクライアントを作ります。
	HTTPClient httpkit.ClientInterface
	// Seed はテスト用の差し替え口です。nil なら乱数を使います。
	Seed func() int64
}

// PollinationsProvider はキー不要の予備プロバイダです。
// プロンプトをURLに埋め込んだ GET の応答本文をそのまま画像として扱います。
type PollinationsProvider struct {
	baseURL string
	model   string
	width   int
	height  int
	client  httpkit.ClientInterface
	seed    func() int64
}

// NewPollinationsProvider は PollinationsProvider を生成します。
func NewPollinationsProvider(opts PollinationsOptions) (*PollinationsProvider, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultPollinationsURL
	}
	if opts.Model == "" {
		opts.Model = DefaultPollinationsModel
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFallbackTimeout
	}
	if opts.HTTPClient == nil {
		// 1つの段で再試行はしない。失敗したら Generator が次の段へ進む
		opts.HTTPClient = httpkit.New(opts.Timeout,
			httpkit.WithMaxRetries(0),
			httpkit.WithSkipNetworkValidation(!opts.SSRFGuard),
		)
	}
	if opts.Seed == nil {
		opts.Seed = randomSeed
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("予備プロバイダのURLが不正です: %w", err)
	}
	if opts.SSRFGuard {
		safe, err := opts.HTTPClient.IsSafeURL(base)
		if err != nil {
			return nil, fmt.Errorf("予備プロバイダのURLを検証できません: %w", err)
		}
		if !safe {
			return nil, fmt.Errorf("予備プロバイダのURLが安全ではありません: %s", base)
		}
	}

	return &PollinationsProvider{
		baseURL: base,
		model:   opts.Model,
		width:   opts.Width,
		height:  opts.Height,
		client:  opts.HTTPClient,
		seed:    opts.Seed,
	}, nil
}

func (p *PollinationsProvider) Name() string             { return ProviderPollinations }
func (p *PollinationsProvider) RequiresCredential() bool { return false }

// URL は最終プロンプトとシードから取得先URLを組み立てます。
func (p *PollinationsProvider) URL(finalPrompt string, seed int64) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(p.width))
	q.Set("height", strconv.Itoa(p.height))
	q.Set("seed", strconv.FormatInt(seed, 10))
	q.Set("nologo", "true")
	q.Set("model", p.model)
	return p.baseURL + "/prompt/" + url.PathEscape(finalPrompt) + "?" + q.Encode()
}

// Generate は1回だけ GET します。2xx 以外や httpkit.MaxResponseBodySize を超える本文はエラーです。
func (p *PollinationsProvider) Generate(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
	seed := p.seed()
	if spec.Seed != nil {
		seed = *spec.Seed
	}

	data, err := p.client.FetchBytes(ctx, p.URL(spec.FinalPrompt, seed))
	if err != nil {
		return nil, fmt.Errorf("予備プロバイダへのリクエストに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &domain.ImageResponse{
		Data:     data,
		MimeType: http.DetectContentType(data),
		UsedSeed: seed,
	}, nil
}
