package generator

import "math/rand/v2"

// maxRandomSeed は予備プロバイダに渡す乱数シードの上限（排他）です。
const maxRandomSeed = 10000

// randomSeed は同じプロンプトでも同じキャッシュ画像が返らないようにするためのシードです。
func randomSeed() int64 {
	return rand.Int64N(maxRandomSeed)
}
