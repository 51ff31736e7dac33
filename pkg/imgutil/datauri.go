package imgutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"
)

// EncodeDataURI は data:{mime};base64,... 形式の文字列を返します。
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EstimateBytes は data URI 全体の長さから保存サイズを概算します (len × 3/4)。
func EstimateBytes(dataURI string) int {
	return len(dataURI) * 3 / 4
}

// DecodeDataURI は base64 の data URI をバイト列と MIME タイプに戻します。
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: data URI ではありません", ErrDecode)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data URI の区切りがありません", ErrDecode)
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: base64 以外の data URI は未対応です", ErrDecode)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// Sniff は画像ヘッダだけを読んで形式と寸法を返します。空やデコード不能なら ErrDecode です。
func Sniff(data []byte) (mimeType string, width, height int, err error) {
	if len(data) == 0 {
		return "", 0, 0, fmt.Errorf("%w: 空のデータです", ErrDecode)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return "image/" + format, cfg.Width, cfg.Height, nil
}
