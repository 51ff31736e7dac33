package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/config"
)

// ModelSource は Imagen と Gemini の両方を提供します。adapters.ClientPool が満たします。
type ModelSource interface {
	ImageSource
	GeminiSource
}

var _ ModelSource = (*adapters.ClientPool)(nil)

// BuildProviders は設定の名前順にプロバイダを組み立てます。名前の重複や未知の名前はエラーです。
func BuildProviders(names []string, models ModelSource, gemini config.GeminiConfig, fallback config.FallbackConfig) ([]Provider, error) {
	seen := make(map[string]bool, len(names))
	providers := make([]Provider, 0, len(names))

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, fmt.Errorf("プロバイダ %q が重複しています", name)
		}
		seen[name] = true

		switch name {
		case ProviderImagen:
			providers = append(providers, NewImagenProvider(models, gemini.ImagenModel))
		case ProviderGeminiImage:
			providers = append(providers, NewGeminiImageProvider(models, gemini.ImageModel))
		case ProviderPollinations:
			p, err := NewPollinationsProvider(PollinationsOptions{
				BaseURL:   fallback.BaseURL,
				Model:     fallback.Model,
				Width:     fallback.Width,
				Height:    fallback.Height,
				SSRFGuard: fallback.SSRFGuard,
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("未知の画像生成プロバイダです: %q", raw)
		}
	}
	return providers, nil
}
