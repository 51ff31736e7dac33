package generator

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
)

// --- Mocks ---

// mockProvider は Provider のテスト用モックなのだ。
type mockProvider struct {
	name        string
	needsKey    bool
	mu          sync.Mutex
	calls       int
	lastSpec    PromptSpec
	generateFun func(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error)
}

func (m *mockProvider) Name() string             { return m.name }
func (m *mockProvider) RequiresCredential() bool { return m.needsKey }

func (m *mockProvider) Generate(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastSpec = spec
	m.mu.Unlock()
	return m.generateFun(ctx, spec)
}

func (m *mockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockModels は ImageSource / GeminiSource を兼ねるモックなのだ。
type mockModels struct {
	gemini.GenerativeModel
	imagesFunc func(model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	partsFunc  func(model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockModels) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return m.imagesFunc(model, prompt, cfg)
}

func (m *mockModels) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	return m.partsFunc(model, parts, opts)
}

func (m *mockModels) Image(ctx context.Context, cred config.Credential) (adapters.ImageModel, error) {
	if !cred.Present() {
		return nil, config.ErrNoCredential
	}
	return m, nil
}

func (m *mockModels) Gemini(ctx context.Context, cred config.Credential) (gemini.GenerativeModel, error) {
	if !cred.Present() {
		return nil, config.ErrNoCredential
	}
	return m, nil
}

// mockHTTPClient は FetchBytes だけを差し替える httpkit.ClientInterface のモックなのだ。
type mockHTTPClient struct {
	httpkit.ClientInterface
	lastURL    string
	fetchFunc  func(url string) ([]byte, error)
	safeResult bool
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.lastURL = url
	return m.fetchFunc(url)
}

func (m *mockHTTPClient) IsSafeURL(url string) (bool, error) {
	return m.safeResult, nil
}

// --- Helpers ---

// tinyPNG は 2x2 の有効なPNGを返すのだ。
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func okProvider(t *testing.T, name string, needsKey bool) *mockProvider {
	data := tinyPNG(t)
	return &mockProvider{
		name:     name,
		needsKey: needsKey,
		generateFun: func(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
			return &domain.ImageResponse{Data: data}, nil
		},
	}
}

func failingProvider(name string, needsKey bool, err error) *mockProvider {
	return &mockProvider{
		name:     name,
		needsKey: needsKey,
		generateFun: func(ctx context.Context, spec PromptSpec) (*domain.ImageResponse, error) {
			return nil, err
		},
	}
}
