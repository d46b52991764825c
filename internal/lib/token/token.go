// Package token генерирует непрозрачные токены сессий.
//
// Токен — 128 бит из криптографического генератора случайных чисел,
// закодированные в hex. Токен служит меткой последнего входа,
// а не криптографическим удостоверением.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// sessionTokenBytes — размер токена в байтах, 16 байт = 128 бит энтропии.
const sessionTokenBytes = 16

// New возвращает новый случайный токен сессии.
func New() (string, error) {
	const op = "token.New"
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return hex.EncodeToString(buf), nil
}
