package generator

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/utils"
)

const (
	DefaultImagenModel = "imagen-3.0-generate-001"
	DefaultGeminiImage = "gemini-2.5-flash-image"
)

// ImagenProvider は Imagen の predict 相当 (GenerateImages) で1枚生成する主プロバイダです。
type ImagenProvider struct {
	models ImageSource
	model  string
}

// NewImagenProvider は ImagenProvider を生成します。
func NewImagenProvider(models ImageSource, model string) *ImagenProvider {
	if model == "" {
		model = DefaultImagenModel
	}
	return &ImagenProvider{models: models, model: model}
}

func (p *ImagenProvider) Name() string             { return ProviderImagen }
func (p *ImagenProvider) RequiresCredential() bool { return true }

func (p *ImagenProvider) Generate(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
	m, err := p.models.Image(ctx, spec.Credential)
	if err != nil {
		return nil, err
	}

	resp, err := m.GenerateImages(ctx, p.model, spec.FinalPrompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    spec.AspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("Imagen画像生成エラー: %w", err)
	}

	out, err := adapters.ParseGeneratedImage(resp, utils.DereferenceSeed(spec.Seed))
	if err != nil {
		return nil, err
	}
	return &domain.ImageResponse{Data: out.Data, MimeType: out.MimeType, UsedSeed: out.UsedSeed}, nil
}

// GeminiImageProvider は画像出力対応の Gemini モデルで生成します。
type GeminiImageProvider struct {
	models GeminiSource
	model  string
}

// NewGeminiImageProvider は GeminiImageProvider を生成します。
func NewGeminiImageProvider(models GeminiSource, model string) *GeminiImageProvider {
	if model == "" {
		model = DefaultGeminiImage
	}
	return &GeminiImageProvider{models: models, model: model}
}

func (p *GeminiImageProvider) Name() string             { return ProviderGeminiImage }
func (p *GeminiImageProvider) RequiresCredential() bool { return true }

func (p *GeminiImageProvider) Generate(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
	m, err := p.models.Gemini(ctx, spec.Credential)
	if err != nil {
		return nil, err
	}

	aspect := spec.AspectRatio
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	resp, err := m.GenerateWithParts(ctx, p.model, []*genai.Part{{Text: spec.FinalPrompt}}, gemini.GenerateOptions{
		AspectRatio: aspect,
		Seed:        spec.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}

	out, err := adapters.ParseInlineImage(resp, utils.DereferenceSeed(spec.Seed))
	if err != nil {
		return nil, err
	}
	return &domain.ImageResponse{Data: out.Data, MimeType: out.MimeType, UsedSeed: out.UsedSeed}, nil
}
