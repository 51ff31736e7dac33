// Package adapters は Gemini クライアントの管理と、その応答をドメインで扱える形に変換する層です。
package adapters

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ImageOutput はプロバイダに依存しない画像の解析結果です。
type ImageOutput struct {
	Data     []byte
	MimeType string
	UsedSeed int64
}

// ParseInlineImage は GenerateWithParts の応答から最初の画像パーツを取り出します。
func ParseInlineImage(resp *gemini.Response, seed int64) (*ImageOutput, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 || resp.RawResponse.Candidates[0] == nil {
		return nil, fmt.Errorf("Geminiからの有効な応答がありませんでした")
	}

	// 最初の候補 (Candidate) のみを利用する
	candidate := resp.RawResponse.Candidates[0]

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &ImageOutput{
					Data:     part.InlineData.Data,
					MimeType: mimeTypeOf(part.InlineData.MIMEType, part.InlineData.Data),
					UsedSeed: seed,
				}, nil
			}
		}
	}

	// 安全フィルター等によるブロックの確認
	if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("画像生成が異常終了しました (FinishReason: %s)", candidate.FinishReason)
	}

	return nil, fmt.Errorf("画像データが見つかりませんでした")
}

// ParseGeneratedImage は GenerateImages の応答から最初の画像を取り出します。
func ParseGeneratedImage(resp *genai.GenerateImagesResponse, seed int64) (*ImageOutput, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("Imagenからの有効な応答がありませんでした")
	}
	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		if img != nil && img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("画像が安全フィルターで除外されました: %s", img.RAIFilteredReason)
		}
		return nil, fmt.Errorf("画像データが空でした")
	}
	return &ImageOutput{
		Data:     img.Image.ImageBytes,
		MimeType: mimeTypeOf(img.Image.MIMEType, img.Image.ImageBytes),
		UsedSeed: seed,
	}, nil
}

// ResponseText は応答の最初の候補のテキストを連結して返します。
func ResponseText(resp *gemini.Response) string {
	if resp == nil || resp.RawResponse == nil {
		return ""
	}
	return strings.TrimSpace(resp.RawResponse.Text())
}

// SeedToPtrInt32 は domain の *int64 を SDK 用の *int32 に変換します。
func SeedToPtrInt32(seed *int64) *int32 {
	if seed == nil {
		return nil
	}
	// int32 の範囲外は上位ビットが切り捨てられるが、シードの再現性としてはそれで十分
	val := int32(*seed)
	return &val
}

func mimeTypeOf(declared string, data []byte) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return http.DetectContentType(data)
}
