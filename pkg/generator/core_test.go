package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/metrics"
)

var withKey = config.Credential{APIKey: "k", Source: config.SourceEnvironment}

func TestBuildFinalPrompt(t *testing.T) {
	assert.Equal(t,
		"a cat, colorful children's book illustration style, white background, no text, no words, high quality, masterpiece",
		BuildFinalPrompt("a cat", ""))
	assert.Equal(t,
		"a cat, watercolor painting, white background, no text, no words, high quality, masterpiece",
		BuildFinalPrompt(" a cat ", "watercolor painting"))
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New([]Provider{nil}, Options{})
	assert.Error(t, err)

	g, err := New([]Provider{okProvider(t, "a", false), okProvider(t, "b", false)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.Providers())
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	req := domain.ImageGenerationRequest{Prompt: "family meal", StyleModifier: "watercolor"}

	t.Run("主プロバイダが成功すれば予備は呼ばれないのだ", func(t *testing.T) {
		primary := okProvider(t, ProviderImagen, true)
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{primary, fallback}, Options{})

		resp, err := g.Generate(ctx, req, withKey)
		require.NoError(t, err)
		assert.Equal(t, ProviderImagen, resp.Provider)
		assert.Equal(t, "image/png", resp.MimeType)
		assert.Equal(t, 1, primary.Calls())
		assert.Zero(t, fallback.Calls())
		assert.Equal(t, BuildFinalPrompt("family meal", "watercolor"), primary.lastSpec.FinalPrompt)
		assert.Equal(t, DefaultAspectRatio, primary.lastSpec.AspectRatio)
	})

	t.Run("主プロバイダが失敗したら予備を1回だけ呼ぶのだ", func(t *testing.T) {
		primary := failingProvider(ProviderImagen, true, errors.New("403 Forbidden"))
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{primary, fallback}, Options{})

		resp, err := g.Generate(ctx, req, withKey)
		require.NoError(t, err)
		assert.Equal(t, ProviderPollinations, resp.Provider)
		assert.Equal(t, 1, primary.Calls())
		assert.Equal(t, 1, fallback.Calls())
	})

	t.Run("空のペイロードや壊れた画像も失敗扱いなのだ", func(t *testing.T) {
		empty := &mockProvider{name: ProviderImagen, needsKey: true, generateFun: func(context.Context, PromptSpec) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{}, nil
		}}
		garbage := &mockProvider{name: ProviderGeminiImage, needsKey: true, generateFun: func(context.Context, PromptSpec) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{Data: []byte("<html>rate limited</html>")}, nil
		}}
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{empty, garbage, fallback}, Options{})

		resp, err := g.Generate(ctx, req, withKey)
		require.NoError(t, err)
		assert.Equal(t, ProviderPollinations, resp.Provider)
		assert.Equal(t, 1, fallback.Calls())
	})

	t.Run("キーが無ければキー必須のプロバイダを飛ばすのだ", func(t *testing.T) {
		primary := okProvider(t, ProviderImagen, true)
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{primary, fallback}, Options{})

		resp, err := g.Generate(ctx, req, config.Credential{})
		require.NoError(t, err)
		assert.Equal(t, ProviderPollinations, resp.Provider)
		assert.Zero(t, primary.Calls())
	})

	t.Run("全部失敗したら1つの終端エラーなのだ", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		primaryErr := errors.New("quota exceeded")
		fallbackErr := errors.New("502 Bad Gateway")
		primary := failingProvider(ProviderImagen, true, primaryErr)
		fallback := failingProvider(ProviderPollinations, false, fallbackErr)
		g, _ := New([]Provider{primary, fallback}, Options{Metrics: m})

		resp, err := g.Generate(ctx, req, withKey)
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAllProvidersFailed)
		assert.ErrorIs(t, err, primaryErr)
		assert.ErrorIs(t, err, fallbackErr)

		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ProviderImagen, pe.Provider)

		assert.Equal(t, 1, primary.Calls())
		assert.Equal(t, 1, fallback.Calls())
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderAttempts.WithLabelValues(ProviderPollinations, metrics.OutcomeFailure)))
	})

	t.Run("キャンセルされたら後続を試さないのだ", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		primary := &mockProvider{name: ProviderImagen, needsKey: true, generateFun: func(c context.Context, _ PromptSpec) (*domain.ImageResponse, error) {
			cancel()
			return nil, c.Err()
		}}
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{primary, fallback}, Options{})

		_, err := g.Generate(cctx, req, withKey)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrAllProvidersFailed)
		assert.Zero(t, fallback.Calls())
	})

	t.Run("タイムアウトはプロバイダごとなのだ", func(t *testing.T) {
		slow := &mockProvider{name: ProviderImagen, needsKey: true, generateFun: func(c context.Context, _ PromptSpec) (*domain.ImageResponse, error) {
			<-c.Done()
			return nil, c.Err()
		}}
		fallback := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{slow, fallback}, Options{Timeout: 20 * time.Millisecond})

		resp, err := g.Generate(ctx, req, withKey)
		require.NoError(t, err)
		assert.Equal(t, ProviderPollinations, resp.Provider)
	})
}

func TestGenerator_GenerateOrNil(t *testing.T) {
	ctx := context.Background()
	fallback := okProvider(t, ProviderPollinations, false)
	g, _ := New([]Provider{okProvider(t, ProviderImagen, true), fallback}, Options{})

	t.Run("キーが無ければ nil を返し、エラーにしないのだ", func(t *testing.T) {
		resp, err := g.GenerateOrNil(ctx, "Bữa cơm gia đình", config.Credential{})
		assert.NoError(t, err)
		assert.Nil(t, resp)
		assert.Zero(t, fallback.Calls())
	})

	t.Run("キーがあれば生成するのだ", func(t *testing.T) {
		resp, err := g.GenerateOrNil(ctx, "family meal", withKey)
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, ProviderImagen, resp.Provider)
	})
}

func TestGenerator_IdeaPreview(t *testing.T) {
	ctx := context.Background()

	t.Run("失敗は握りつぶして nil なのだ", func(t *testing.T) {
		g, _ := New([]Provider{failingProvider(ProviderPollinations, false, errors.New("down"))}, Options{})
		assert.Nil(t, g.IdeaPreview(ctx, "Tranh lá", "Dán lá cây", withKey))
	})

	t.Run("タイトルと説明がプロンプトに入るのだ", func(t *testing.T) {
		p := okProvider(t, ProviderPollinations, false)
		g, _ := New([]Provider{p}, Options{})
		require.NotNil(t, g.IdeaPreview(ctx, "Tranh lá", "Dán lá cây", config.Credential{}))
		assert.True(t, strings.HasPrefix(p.lastSpec.FinalPrompt, "Children's art project illustration: Tranh lá. Dán lá cây, "))
	})
}
