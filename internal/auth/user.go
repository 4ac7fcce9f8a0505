package auth

import (
	"context"

	"github.com/frahmantamala/company-authz/internal/core/user"
	"golang.org/x/crypto/bcrypt"
)

// RepositoryAPI returns (nil, nil) when the user does not exist.
type RepositoryAPI interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
