package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/config"
)

func TestImagenProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("成功: プロンプトとアスペクト比がSDKに渡されるのだ", func(t *testing.T) {
		data := tinyPNG(t)
		models := &mockModels{
			imagesFunc: func(model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
				assert.Equal(t, "imagen-test", model)
				assert.Equal(t, "final prompt", prompt)
				assert.Equal(t, int32(1), cfg.NumberOfImages)
				assert.Equal(t, "1:1", cfg.AspectRatio)
				return &genai.GenerateImagesResponse{
					GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: data, MIMEType: "image/png"}}},
				}, nil
			},
		}
		p := NewImagenProvider(models, "imagen-test")
		assert.True(t, p.RequiresCredential())

		resp, err := p.Generate(ctx, PromptSpec{FinalPrompt: "final prompt", AspectRatio: "1:1", Credential: withKey})
		require.NoError(t, err)
		assert.Equal(t, data, resp.Data)
	})

	t.Run("SDKのエラーはそのまま失敗なのだ", func(t *testing.T) {
		models := &mockModels{
			imagesFunc: func(string, string, *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
				return nil, errors.New("billing required")
			},
		}
		_, err := NewImagenProvider(models, "").Generate(ctx, PromptSpec{Credential: withKey})
		assert.Error(t, err)
	})

	t.Run("空の応答は失敗なのだ", func(t *testing.T) {
		models := &mockModels{
			imagesFunc: func(string, string, *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
				return &genai.GenerateImagesResponse{}, nil
			},
		}
		_, err := NewImagenProvider(models, "").Generate(ctx, PromptSpec{Credential: withKey})
		assert.Error(t, err)
	})

	t.Run("キーが無ければクライアントを作れないのだ", func(t *testing.T) {
		_, err := NewImagenProvider(&mockModels{}, "").Generate(ctx, PromptSpec{})
		assert.ErrorIs(t, err, config.ErrNoCredential)
	})
}

func TestGeminiImageProvider(t *testing.T) {
	ctx := context.Background()
	seed := int64(777)
	data := tinyPNG(t)

	t.Run("成功: プロンプトとシードとアスペクト比がクライアントに渡されるのだ", func(t *testing.T) {
		models := &mockModels{
			partsFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				assert.Equal(t, DefaultGeminiImage, model)
				require.Len(t, parts, 1)
				assert.Equal(t, "final prompt", parts[0].Text)
				if assert.NotNil(t, opts.Seed) {
					assert.Equal(t, seed, *opts.Seed)
				}
				assert.Equal(t, "16:9", opts.AspectRatio)
				return &gemini.Response{RawResponse: &genai.GenerateContentResponse{
					Candidates: []*genai.Candidate{{
						Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}}}},
					}},
				}}, nil
			},
		}

		resp, err := NewGeminiImageProvider(models, "").Generate(ctx, PromptSpec{FinalPrompt: "final prompt", Seed: &seed, AspectRatio: "16:9", Credential: withKey})
		require.NoError(t, err)
		assert.Equal(t, seed, resp.UsedSeed)
		assert.Equal(t, data, resp.Data)
	})

	t.Run("アスペクト比が空なら既定値で画像出力を要求するのだ", func(t *testing.T) {
		models := &mockModels{
			partsFunc: func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
				assert.Equal(t, DefaultAspectRatio, opts.AspectRatio)
				return &gemini.Response{RawResponse: &genai.GenerateContentResponse{}}, nil
			},
		}
		_, err := NewGeminiImageProvider(models, "").Generate(ctx, PromptSpec{FinalPrompt: "x", Credential: withKey})
		assert.Error(t, err, "画像パートが無い応答は失敗なのだ")
	})

	t.Run("クライアントのエラーは失敗なのだ", func(t *testing.T) {
		models := &mockModels{
			partsFunc: func(string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error) {
				return nil, errors.New("quota exceeded")
			},
		}
		_, err := NewGeminiImageProvider(models, "").Generate(ctx, PromptSpec{FinalPrompt: "x", Credential: withKey})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})
}

func TestBuildProviders(t *testing.T) {
	gcfg := config.Default().Gemini
	fcfg := config.Default().Fallback

	t.Run("名前順に組み立てるのだ", func(t *testing.T) {
		ps, err := BuildProviders([]string{"imagen", "Gemini-Image", "pollinations"}, &mockModels{}, gcfg, fcfg)
		require.NoError(t, err)
		require.Len(t, ps, 3)
		assert.Equal(t, ProviderImagen, ps[0].Name())
		assert.Equal(t, ProviderGeminiImage, ps[1].Name())
		assert.Equal(t, ProviderPollinations, ps[2].Name())
	})

	t.Run("未知の名前や重複はエラーなのだ", func(t *testing.T) {
		_, err := BuildProviders([]string{"dalle"}, &mockModels{}, gcfg, fcfg)
		assert.Error(t, err)
		_, err = BuildProviders([]string{"imagen", "imagen"}, &mockModels{}, gcfg, fcfg)
		assert.Error(t, err)
	})
}
