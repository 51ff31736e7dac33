package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/curriculum"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/draft"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/identity"
	"github.com/shouni/artconnect-kit/pkg/kvstore"
	"github.com/shouni/artconnect-kit/pkg/metrics"
	"github.com/shouni/artconnect-kit/pkg/studio"
	"github.com/shouni/artconnect-kit/pkg/translator"
)

// stubGenerator は固定の PNG を返すか、固定のエラーを返します。
type stubGenerator struct {
	data []byte
	err  error
}

func (g *stubGenerator) Generate(context.Context, domain.ImageGenerationRequest, config.Credential) (*domain.ImageResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &domain.ImageResponse{Data: g.data, MimeType: "image/png", Provider: "stub", UsedSeed: 42}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNGHeader は IHDR だけで 16000x16000 を宣言する小さな PNG です。
func hugePNGHeader() []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 16000)
	binary.BigEndian.PutUint32(ihdr[4:8], 16000)
	ihdr[8], ihdr[9] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

type testEnv struct {
	server   *Server
	gen      *stubGenerator
	resolver *config.Resolver
	gallery  *gallery.Adapter
	lesson   domain.LessonRef
}

type envOptions struct {
	noGallery bool
	noAuth    bool
	maxBody   int64
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	cur, err := curriculum.Default()
	require.NoError(t, err)
	grades := cur.Grades()
	require.NotEmpty(t, grades)
	first := grades[0].Topics[0].Lessons[0]
	ref, ok := cur.Lesson(first.ID)
	require.True(t, ok)

	kv := kvstore.NewMemoryStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	resolver := config.NewResolver(kv, "", nil)
	tr := translator.New(nil, translator.Options{Metrics: m})
	gen := &stubGenerator{data: pngBytes(t)}
	drafts := draft.NewPersister(kv, nil)

	var backend gallery.Backend
	if !opts.noGallery {
		backend = gallery.NewMemoryBackend()
	}
	adapter := gallery.NewAdapter(backend, gallery.Options{Metrics: m})

	st, err := studio.New(studio.Deps{
		Resolver:   resolver,
		Translator: tr,
		Generator:  gen,
		Gallery:    adapter,
		Drafts:     drafts,
	}, studio.Options{})
	require.NoError(t, err)

	secret := "test-secret"
	if opts.noAuth {
		secret = ""
	}
	srv := New(Deps{
		Curriculum: cur,
		Resolver:   resolver,
		Ideas:      tr,
		Studio:     st,
		Gallery:    adapter,
		Drafts:     drafts,
		Issuer:     identity.NewIssuer(secret, time.Hour),
		Gatherer:   reg,
	}, Options{StreamHeartbeat: time.Hour, MaxBodyBytes: opts.maxBody})

	return &testEnv{server: srv, gen: gen, resolver: resolver, gallery: adapter, lesson: ref}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signIn(t *testing.T) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/anonymous", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		User  identity.User `json:"user"`
		Token string        `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.User.ID, out.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
