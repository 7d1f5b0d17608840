package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

var (
	dummyOnce sync.Once
	dummyHash string
)

func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyHash returns a hash at BcryptCost that no submitted password matches.
// Login compares against it when the account does not exist.
func DummyHash() string {
	dummyOnce.Do(func() {
		secret, err := RandomToken(32)
		if err != nil {
			secret = "tourhub-dummy-password"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
		if err == nil {
			dummyHash = string(hash)
		}
	})
	return dummyHash
}
