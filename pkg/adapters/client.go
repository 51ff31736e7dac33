package adapters

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/config"
)

// maxPooledClients は同時に保持するクライアント数の上限です。
const maxPooledClients = 8

// ImageModel は Imagen 系モデルによる画像生成の呼び出し口です。*genai.Models が満たします。
type ImageModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Models はAPIキー1つ分の呼び出し口です。
// テキストと Gemini 画像モデルは gemini.GenerativeModel、Imagen は ImageModel を通します。
type Models interface {
	gemini.GenerativeModel
	ImageModel
}

// Factory はAPIキーからモデルの呼び出し口を生成します。
type Factory func(ctx context.Context, apiKey string) (Models, error)

// GenAIFactory は NewGenAIModel を Factory として使うためのものです。
func GenAIFactory(ctx context.Context, apiKey string) (Models, error) {
	m, err := NewGenAIModel(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ClientPool はAPIキーごとにクライアントを使い回します。
// キーが差し替えられても古いクライアントは上限を超えた時点で破棄されます。
type ClientPool struct {
	factory Factory
	mu      sync.Mutex
	clients *lru.Cache[string, Models]
}

// NewClientPool は ClientPool を生成します。factory が nil なら GenAIFactory を使います。
func NewClientPool(factory Factory) *ClientPool {
	if factory == nil {
		factory = GenAIFactory
	}
	// サイズが正であれば lru.New は失敗しない
	clients, _ := lru.New[string, Models](maxPooledClients)
	return &ClientPool{factory: factory, clients: clients}
}

// Models は資格情報に対応する呼び出し口を返します。キーが無ければ config.ErrNoCredential です。
func (p *ClientPool) Models(ctx context.Context, cred config.Credential) (Models, error) {
	if !cred.Present() {
		return nil, config.ErrNoCredential
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.clients.Get(cred.APIKey); ok {
		return m, nil
	}
	m, err := p.factory(context.WithoutCancel(ctx), cred.APIKey)
	if err != nil {
		return nil, err
	}
	p.clients.Add(cred.APIKey, m)
	return m, nil
}

// Gemini は gemini.GenerativeModel を返します。
func (p *ClientPool) Gemini(ctx context.Context, cred config.Credential) (gemini.GenerativeModel, error) {
	return p.Models(ctx, cred)
}

// Image は ImageModel を返します。
func (p *ClientPool) Image(ctx context.Context, cred config.Credential) (ImageModel, error) {
	return p.Models(ctx, cred)
}

// Len は保持中のクライアント数です。
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients.Len()
}
