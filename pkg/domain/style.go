package domain

import (
	"fmt"
	"strings"
)

// Style は画風の列挙値です。値はUIに表示するラベルそのものです。
type Style string

const (
	StyleWatercolor    Style = "Watercolor"
	StyleCrayon        Style = "Crayon"
	StyleOilPainting   Style = "Oil Painting"
	StylePaperCutout   Style = "Paper Cutout"
	StylePencilSketch  Style = "Pencil Sketch"
	StylePencilLineArt Style = "Pencil Line Art"
	Style3DCartoon     Style = "3D Cartoon"
)

// DefaultStyle は未指定時の画風です。
const DefaultStyle = StyleWatercolor

var styleModifiers = map[Style]string{
	StyleWatercolor:    "watercolor painting style, soft colors, artistic, wet on wet technique",
	StyleCrayon:        "crayon drawing style, child art texture, vibrant, wax texture",
	StyleOilPainting:   "oil painting style, textured brush strokes, masterpiece, impasto",
	StylePaperCutout:   "paper cutout craft style, layered paper texture, depth, shadow",
	StylePencilSketch:  "pencil sketch, black and white, rough lines, shading, graphite",
	StylePencilLineArt: "clean line art, black and white, coloring page style, no shading, distinct lines",
	Style3DCartoon:     "3D cartoon render, cute, plasticine style, blender 3d, soft lighting",
}

// Styles は表示順の全画風です。
func Styles() []Style {
	return []Style{
		StyleWatercolor,
		StyleCrayon,
		StyleOilPainting,
		StylePaperCutout,
		StylePencilSketch,
		StylePencilLineArt,
		Style3DCartoon,
	}
}

// ParseStyle はラベル（大文字小文字は区別しない）から Style を得ます。
func ParseStyle(s string) (Style, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultStyle, nil
	}
	for _, st := range Styles() {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown style: %q", s)
}

// Modifier は画像生成器に渡す画風の修飾語です。未知の画風は空文字を返します。
func (s Style) Modifier() string {
	return styleModifiers[s]
}

// IsLineArt はモノクロ線画を強制すべき画風かどうかを返します。
func (s Style) IsLineArt() bool {
	return s == StylePencilLineArt || s == StylePencilSketch
}
