// Package imgutil は保存前の画像の縮小と再圧縮を行います。
package imgutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode は入力が画像としてデコードできないことを示します。
	ErrDecode = errors.New("画像をデコードできません")
	// ErrTooLarge はヘッダが宣言する画素数が MaxPixels を超えることを示します。
	ErrTooLarge = errors.New("画像の画素数が大きすぎます")
)

// MaxPixels はデコードを許す画素数の上限です。RGBA で展開すると約160MBになります。
const MaxPixels = 40_000_000

// decodeBounded はヘッダの寸法を先に確かめてから全体をデコードします。
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: 寸法が不正です (%dx%d)", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Options は CompressToDataURI のパラメータです。品質は 1〜100 の JPEG 品質です。
type Options struct {
	MaxDimension   int // 長辺の上限（拡大はしない）
	InitialQuality int
	QualityStep    int
	MinQuality     int // これを下回ったら打ち切り
	MaxAttempts    int
	TargetBytes    int // 推定サイズがこれ未満になれば終了
	HardLimitBytes int // 最終結果がこれを超えたら強制縮小

	FallbackScale   float64
	FallbackQuality int
}

// DefaultOptions はドキュメントストアの1フィールド上限に収まるよう調整した既定値です。
func DefaultOptions() Options {
	return Options{
		MaxDimension:    800,
		InitialQuality:  80,
		QualityStep:     15,
		MinQuality:      20,
		MaxAttempts:     5,
		TargetBytes:     800 * 1024,
		HardLimitBytes:  1024 * 1024,
		FallbackScale:   0.5,
		FallbackQuality: 50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxDimension <= 0 {
		o.MaxDimension = d.MaxDimension
	}
	if o.InitialQuality <= 0 {
		o.InitialQuality = d.InitialQuality
	}
	if o.QualityStep <= 0 {
		o.QualityStep = d.QualityStep
	}
	if o.MinQuality <= 0 {
		o.MinQuality = d.MinQuality
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.TargetBytes <= 0 {
		o.TargetBytes = d.TargetBytes
	}
	if o.HardLimitBytes <= 0 {
		o.HardLimitBytes = d.HardLimitBytes
	}
	if o.FallbackScale <= 0 || o.FallbackScale >= 1 {
		o.FallbackScale = d.FallbackScale
	}
	if o.FallbackQuality <= 0 {
		o.FallbackQuality = d.FallbackQuality
	}
	return o
}

// CompressToDataURI は画像を縮小し、推定サイズが TargetBytes 未満になるまで品質を下げて
// JPEG の data URI を返します。サイズは base64 長からの推定であり厳密な上限ではありません。
// 試行を使い切っても HardLimitBytes を超える場合は FallbackScale で更に縮小します。
// 画素数が MaxPixels を超える画像はデコードせずに ErrTooLarge を返します。
func CompressToDataURI(data []byte, opts Options) (string, error) {
	opts = opts.withDefaults()

	src, err := decodeBounded(data)
	if err != nil {
		return "", err
	}

	w, h := FitWithin(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxDimension)
	canvas := scaleOnWhite(src, w, h)

	var uri string
	q := opts.InitialQuality
	for attempt := 1; ; attempt++ {
		uri, err = encodeJPEGDataURI(canvas, q)
		if err != nil {
			return "", err
		}
		if EstimateBytes(uri) < opts.TargetBytes || q < opts.MinQuality || attempt > opts.MaxAttempts {
			break
		}
		q -= opts.QualityStep
	}

	if EstimateBytes(uri) > opts.HardLimitBytes {
		fw := max(1, int(float64(w)*opts.FallbackScale))
		fh := max(1, int(float64(h)*opts.FallbackScale))
		return encodeJPEGDataURI(scaleOnWhite(canvas, fw, fh), opts.FallbackQuality)
	}
	return uri, nil
}

// FitWithin は縦横比を保ったまま長辺を maxDim 以下にした寸法を返します。小さい画像は拡大しません。
func FitWithin(width, height, maxDim int) (int, int) {
	if width > height {
		if width > maxDim {
			height = roundDiv(height*maxDim, width)
			width = maxDim
		}
	} else if height > maxDim {
		width = roundDiv(width*maxDim, height)
		height = maxDim
	}
	return max(1, width), max(1, height)
}

// CompressToJPEG は画像データ（PNG, GIF, JPEG, WebP）をJPEG形式に圧縮します。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, err := decodeBounded(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, scaleOnWhite(img, b.Dx(), b.Dy()), &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scaleOnWhite は白地に src を w×h で描画します。透過部分は白になります。
func scaleOnWhite(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if sb := src.Bounds(); sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEGDataURI(img image.Image, quality int) (string, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return "", fmt.Errorf("JPEGエンコードに失敗しました: %w", err)
	}
	return EncodeDataURI("image/jpeg", buf.Bytes()), nil
}

func clampQuality(q int) int {
	return min(100, max(1, q))
}

func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
