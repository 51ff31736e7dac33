package adapters

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// mockModels は Models インターフェースのテスト用モックなのだ。
type mockModels struct {
	gemini.GenerativeModel
	apiKey string
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return &gemini.Response{RawResponse: &genai.GenerateContentResponse{}}, nil
}

func (m *mockModels) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	return &gemini.Response{RawResponse: &genai.GenerateContentResponse{}}, nil
}

func (m *mockModels) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return &genai.GenerateImagesResponse{}, nil
}

// countingFactory は生成回数を数える Factory を返すのだ。
func countingFactory(calls *int) Factory {
	return func(ctx context.Context, apiKey string) (Models, error) {
		*calls++
		return &mockModels{apiKey: apiKey}, nil
	}
}
