package studio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/translator"
)

// mockGenerator は generator.ImageGenerator のモックです。
type mockGenerator struct {
	mu       sync.Mutex
	calls    []domain.ImageGenerationRequest
	data     []byte
	err      error
	started  chan struct{}
	blocking bool
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.ImageGenerationRequest, cred config.Credential) (*domain.ImageResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	blocking := m.blocking
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ImageResponse{Data: m.data, MimeType: "image/png", Provider: "mock"}, nil
}

func (m *mockGenerator) Calls() []domain.ImageGenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ImageGenerationRequest(nil), m.calls...)
}

// mockTranslator は受け取った要求を記録し、固定の訳文を返します。
type mockTranslator struct {
	mu   sync.Mutex
	reqs []struct {
		Cred config.Credential
		Text string
	}
	out string
}

func (m *mockTranslator) Translate(_ context.Context, req translator.Request, cred config.Credential) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, struct {
		Cred config.Credential
		Text string
	}{cred, req.NativeText})
	return m.out
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func lessonRef() domain.LessonRef {
	topic := domain.Topic{ID: "G3_T2", No: 2, Name: "Chủ đề 2: Gia đình"}
	lesson := domain.Lesson{ID: "G3_T2_L1", No: 1, Name: "Bài 1: Bữa cơm gia đình"}
	topic.Lessons = []domain.Lesson{lesson}
	return domain.LessonRef{Grade: 3, Topic: topic, Lesson: lesson}
}
