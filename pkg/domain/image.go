package domain

// ImageGenerationRequest は単一の画像生成要求です。
// Prompt は翻訳済みの英語プロンプト、StyleModifier は画風の修飾語です。
type ImageGenerationRequest struct {
	Prompt        string
	StyleModifier string
	AspectRatio   string
	Seed          *int64 // nil でランダム、値指定で固定
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
	UsedSeed int64  // 戻り値は情報欠落を防ぐため int64
	Provider string // 実際に画像を返したプロバイダ名
}
