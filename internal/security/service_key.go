package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidServiceKey = errors.New("invalid service key")

// ServiceKeyVerifier checks the x-api-key presented by trusted backends
// against a bcrypt hash from configuration.
type ServiceKeyVerifier struct {
	hash []byte
}

func NewServiceKeyVerifier(hash string) *ServiceKeyVerifier {
	return &ServiceKeyVerifier{hash: []byte(hash)}
}

func (v *ServiceKeyVerifier) Verify(key string) error {
	if len(v.hash) == 0 || key == "" {
		return ErrInvalidServiceKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidServiceKey
	}
	return nil
}

// HashServiceKey produces the value stored in security.service_key_hash.
func HashServiceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
