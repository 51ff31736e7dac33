package adapters

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenAIModel は genai クライアントを gemini.GenerativeModel として扱えるようにしたものです。
// Imagen 用の GenerateImages もあわせて提供します。
type GenAIModel struct {
	client *genai.Client
}

var (
	_ gemini.GenerativeModel = (*GenAIModel)(nil)
	_ ImageModel             = (*GenAIModel)(nil)
)

// NewGenAIModel は Gemini API バックエンドの genai クライアントを生成します。
func NewGenAIModel(ctx context.Context, apiKey string) (*GenAIModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
	}
	return &GenAIModel{client: client}, nil
}

// GenerateContent は単一のテキストプロンプトで生成します。
func (m *GenAIModel) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return m.GenerateWithParts(ctx, model, []*genai.Part{{Text: prompt}}, gemini.GenerateOptions{})
}

// GenerateWithParts はパーツ列とオプションで生成します。
// AspectRatio が指定されたときは画像出力を要求します。
func (m *GenAIModel) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	cfg := &genai.GenerateContentConfig{Seed: SeedToPtrInt32(opts.Seed)}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	if opts.AspectRatio != "" {
		cfg.ResponseModalities = []string{"IMAGE", "TEXT"}
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio}
	}

	resp, err := m.client.Models.GenerateContent(ctx, model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, cfg)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}

// UploadFile は File API にアップロードし、(URI, 名前) を返します。
func (m *GenAIModel) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	f, err := m.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", "", fmt.Errorf("ファイルのアップロードに失敗しました: %w", err)
	}
	return f.URI, f.Name, nil
}

// DeleteFile は File API 上のファイルを削除します。
func (m *GenAIModel) DeleteFile(ctx context.Context, name string) error {
	if _, err := m.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("ファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// GetFile は File API 上のファイル情報を返します。
func (m *GenAIModel) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return m.client.Files.Get(ctx, name, nil)
}

// GenerateImages は Imagen 系モデルで画像を生成します。
func (m *GenAIModel) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return m.client.Models.GenerateImages(ctx, model, prompt, config)
}
