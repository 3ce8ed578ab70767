package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ShortCodeCharset 只包含 URL 安全的字母和数字
const ShortCodeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultShortCodeLength = 8
	minShortCodeLength     = 6
	maxShortCodeLength     = 16
)

var charsetSize = big.NewInt(int64(len(ShortCodeCharset)))

// GenerateShortCode 使用 crypto/rand 生成指定长度的短码。
// 唯一性由存储层的唯一约束保证，这里不做检查。
func GenerateShortCode(length int) (string, error) {
	if length < minShortCodeLength || length > maxShortCodeLength {
		return "", fmt.Errorf("length must be between %d and %d", minShortCodeLength, maxShortCodeLength)
	}
	shortCode := make([]byte, length)
	for i := range shortCode {
		num, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate random char index: %w", err)
		}
		shortCode[i] = ShortCodeCharset[num.Int64()]
	}
	return string(shortCode), nil
}

// IsShortCode 校验字符串是否可能是一个合法短码
func IsShortCode(code string) bool {
	if len(code) < minShortCodeLength || len(code) > maxShortCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
