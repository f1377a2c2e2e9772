package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptManager implements model.PasswordManager on top of bcrypt.
type BcryptManager struct {
	cost int
}

func NewBcryptManager() *BcryptManager {
	return &BcryptManager{cost: bcrypt.DefaultCost}
}

func (m *BcryptManager) Hash(plainTextPassword string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), m.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (m *BcryptManager) Check(hashedPassword, plainTextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainTextPassword))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
