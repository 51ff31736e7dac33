package adapters

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/artconnect-kit/pkg/config"
)

func TestParseInlineImage(t *testing.T) {
	seed := int64(9999)

	t.Run("正常系: 画像が含まれるレスポンスを正しく解析するのだ", func(t *testing.T) {
		resp := &gemini.Response{RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Parts: []*genai.Part{
							{Text: "here you go"},
							{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("dummy-data")}},
						},
					},
				},
			},
		}}

		out, err := ParseInlineImage(resp, seed)
		if err != nil {
			t.Fatalf("パース中にエラーが発生したのだ: %v", err)
		}
		if string(out.Data) != "dummy-data" || out.UsedSeed != seed || out.MimeType != "image/png" {
			t.Error("抽出データまたはシード値が想定と異なるのだ")
		}
	})

	t.Run("異常系: FinishReason が異常（SAFETY等）な場合", func(t *testing.T) {
		resp := &gemini.Response{RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}
		if _, err := ParseInlineImage(resp, seed); err == nil {
			t.Error("異常な FinishReason のときはエラーを返すべきなのだ")
		}
	})

	t.Run("異常系: 候補が空", func(t *testing.T) {
		if _, err := ParseInlineImage(&gemini.Response{RawResponse: &genai.GenerateContentResponse{}}, seed); err == nil {
			t.Error("候補が無いときはエラーを返すべきなのだ")
		}
		if _, err := ParseInlineImage(&gemini.Response{}, seed); err == nil {
			t.Error("RawResponse が無いときはエラーを返すべきなのだ")
		}
		if _, err := ParseInlineImage(nil, seed); err == nil {
			t.Error("nil のときはエラーを返すべきなのだ")
		}
	})
}

func TestParseGeneratedImage(t *testing.T) {
	t.Run("正常系: 最初の画像を返すのだ", func(t *testing.T) {
		resp := &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{
				{Image: &genai.Image{ImageBytes: []byte("\x89PNG\r\n\x1a\nrest"), MIMEType: "image/png"}},
			},
		}
		out, err := ParseGeneratedImage(resp, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.MimeType != "image/png" || len(out.Data) == 0 {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("MIMEタイプが無ければ中身から推定するのだ", func(t *testing.T) {
		resp := &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{
				{Image: &genai.Image{ImageBytes: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")}},
			},
		}
		out, err := ParseGeneratedImage(resp, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.MimeType != "image/png" {
			t.Errorf("expected image/png, got %s", out.MimeType)
		}
	})

	t.Run("異常系: 空のペイロードや安全フィルター", func(t *testing.T) {
		cases := []*genai.GenerateImagesResponse{
			nil,
			{},
			{GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{}}}},
			{GeneratedImages: []*genai.GeneratedImage{{RAIFilteredReason: "blocked"}}},
		}
		for i, resp := range cases {
			if _, err := ParseGeneratedImage(resp, 0); err == nil {
				t.Errorf("case %d: エラーを返すべきなのだ", i)
			}
		}
	})
}

func TestResponseText(t *testing.T) {
	resp := &gemini.Response{RawResponse: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("  hello  ", genai.RoleModel)}},
	}}
	if got := ResponseText(resp); got != "hello" {
		t.Errorf("got %q", got)
	}
	if ResponseText(nil) != "" || ResponseText(&gemini.Response{}) != "" {
		t.Error("空の応答は空文字なのだ")
	}
}

func TestSeedToPtrInt32(t *testing.T) {
	if SeedToPtrInt32(nil) != nil {
		t.Error("nil は nil のままなのだ")
	}
	v := int64(42)
	if got := SeedToPtrInt32(&v); got == nil || *got != 42 {
		t.Errorf("unexpected: %v", got)
	}
}

func TestClientPool(t *testing.T) {
	ctx := context.Background()

	t.Run("同じキーならクライアントを使い回すのだ", func(t *testing.T) {
		calls := 0
		pool := NewClientPool(countingFactory(&calls))
		cred := config.Credential{APIKey: "k1", Source: config.SourceOverride}

		m1, err := pool.Gemini(ctx, cred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m2, _ := pool.Image(ctx, cred)
		if m1.(*mockModels) != m2.(*mockModels) {
			t.Error("同じインスタンスが返るべきなのだ")
		}
		if calls != 1 {
			t.Errorf("factory calls = %d, want 1", calls)
		}
	})

	t.Run("キーが無ければ ErrNoCredential", func(t *testing.T) {
		pool := NewClientPool(countingFactory(new(int)))
		_, err := pool.Models(ctx, config.Credential{})
		if !errors.Is(err, config.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
	})

	t.Run("上限を超えると古いものから破棄されるのだ", func(t *testing.T) {
		calls := 0
		pool := NewClientPool(countingFactory(&calls))
		for i := 0; i < maxPooledClients+3; i++ {
			if _, err := pool.Models(ctx, config.Credential{APIKey: fmt.Sprintf("k%d", i)}); err != nil {
				t.Fatal(err)
			}
		}
		if pool.Len() != maxPooledClients {
			t.Errorf("len = %d, want %d", pool.Len(), maxPooledClients)
		}
	})

	t.Run("生成に失敗したらエラーを返すのだ", func(t *testing.T) {
		pool := NewClientPool(func(ctx context.Context, apiKey string) (Models, error) {
			return nil, errors.New("boom")
		})
		if _, err := pool.Models(ctx, config.Credential{APIKey: "k"}); err == nil {
			t.Error("エラーになるべきなのだ")
		}
		if pool.Len() != 0 {
			t.Error("失敗したクライアントは保持しないのだ")
		}
	})
}
