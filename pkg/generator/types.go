package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/artconnect-kit/pkg/config"
)

// プロバイダ名
const (
	ProviderImagen       = "imagen"
	ProviderGeminiImage  = "gemini-image"
	ProviderPollinations = "pollinations"
)

const (
	DefaultStyleModifier = "colorful children's book illustration style"
	qualitySuffix        = "white background, no text, no words, high quality, masterpiece"
	DefaultAspectRatio   = "1:1"
)

// PromptSpec は各プロバイダに渡す共通の入力です。
type PromptSpec struct {
	// FinalPrompt は品質・安全の接尾辞まで付与した完成済みのプロンプトです。
	FinalPrompt string
	AspectRatio string
	Seed        *int64
	Credential  config.Credential
}

// BuildFinalPrompt は {prompt}, {modifier}, {固定の接尾辞} を組み立てます。
// modifier が空なら児童書風の既定修飾語を使います。
func BuildFinalPrompt(prompt, styleModifier string) string {
	modifier := strings.TrimSpace(styleModifier)
	if modifier == "" {
		modifier = DefaultStyleModifier
	}
	return fmt.Sprintf("%s, %s, %s", strings.TrimSpace(prompt), modifier, qualitySuffix)
}
