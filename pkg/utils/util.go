// Package utils はパッケージ横断の小さな補助関数です。
package utils

import "strings"

// DereferenceSeed は、int64のポインタを安全にデリファレンスします。
// ポインタがnilの場合は0を返します。
func DereferenceSeed(seed *int64) int64 {
	if seed == nil {
		return 0
	}
	return *seed
}

// FirstNonEmpty は前後の空白を除いて最初に空でない値を返します。
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
