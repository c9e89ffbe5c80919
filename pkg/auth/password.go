// Package auth 提供密码哈希与 Bearer 令牌的签发、校验.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength bcrypt 只使用前 72 字节.
const MaxPasswordLength = 72

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
)

// ValidatePassword 检查密码长度.
func ValidatePassword(password string, minLen int) error {
	if len(password) < minLen {
		return fmt.Errorf("%w: at least %d characters", ErrPasswordTooShort, minLen)
	}

	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}

// HashPassword 使用 bcrypt 计算哈希，cost 超出范围时使用默认值.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword 比较明文与哈希.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
