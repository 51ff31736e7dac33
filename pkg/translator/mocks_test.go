package translator

import (
	"context"
	"sync"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/config"
)

// mockTextModel は gemini.GenerativeModel のテスト用モックなのだ。
type mockTextModel struct {
	gemini.GenerativeModel

	mu           sync.Mutex
	calls        int
	lastModel    string
	lastPrompt   string
	lastOpts     gemini.GenerateOptions
	generateFunc func(prompt string, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockTextModel) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return m.GenerateWithParts(ctx, model, []*genai.Part{{Text: prompt}}, gemini.GenerateOptions{})
}

func (m *mockTextModel) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	var prompt string
	for _, p := range parts {
		prompt += p.Text
	}
	m.mu.Lock()
	m.calls++
	m.lastModel = model
	m.lastPrompt = prompt
	m.lastOpts = opts
	m.mu.Unlock()
	if m.generateFunc != nil {
		return m.generateFunc(prompt, opts)
	}
	return textResponse("a cute watercolor drawing"), nil
}

func (m *mockTextModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSource は ModelSource のモックなのだ。
type mockSource struct {
	model *mockTextModel
	err   error
}

func (s *mockSource) Gemini(ctx context.Context, cred config.Credential) (gemini.GenerativeModel, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

func textResponse(text string) *gemini.Response {
	return &gemini.Response{RawResponse: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}}
}
