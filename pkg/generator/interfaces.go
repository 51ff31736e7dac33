package generator

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
)

// Provider は画像生成プロバイダの共通契約です。
// Generator は登録順に各プロバイダを高々1回ずつ試します。
type Provider interface {
	Name() string
	// RequiresCredential が true のプロバイダはキーが無いとき試行されません。
	RequiresCredential() bool
	Generate(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error)
}

// ImageSource は Imagen 用のモデルを提供します。adapters.ClientPool が満たします。
type ImageSource interface {
	Image(ctx context.Context, cred config.Credential) (adapters.ImageModel, error)
}

// GeminiSource は画像出力対応の Gemini モデルを提供します。adapters.ClientPool が満たします。
type GeminiSource interface {
	Gemini(ctx context.Context, cred config.Credential) (gemini.GenerativeModel, error)
}

// ImageGenerator は上位層が利用する統合窓口です。
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.ImageGenerationRequest, cred config.Credential) (*domain.ImageResponse, error)
}
