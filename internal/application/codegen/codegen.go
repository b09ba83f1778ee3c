// Package codegen генерирует короткие коды комнат, которые удобно набирать руками.
package codegen

import (
	"math/rand/v2"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generate возвращает код длины length, которого нет среди ключей existing.
//
// Проверка и вставка не атомарны: вызывающий держит блокировку, под которой
// existing и читается, и пополняется.
func Generate[V any](length int, existing map[string]V) string {
	var b strings.Builder
	b.Grow(length)

	for {
		b.Reset()

		for range length {
			b.WriteByte(alphabet[rand.IntN(len(alphabet))])
		}

		code := b.String()
		if _, taken := existing[code]; !taken {
			return code
		}
	}
}
