// Package auth issues session tokens and checks account credentials.
package auth

import (
	"context"

	"github.com/devinvista/Trip-sub001/internal/models"
)

// Authenticator registers and signs in travellers. The auth service depends on
// it rather than on bcrypt so the credential scheme can change.
type Authenticator interface {
	// Register creates an account. Email is normalized (trimmed, lower case)
	// before it is checked for uniqueness.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account for email if credential matches, and
	// ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	ValidateCredential(credential string) error
}

// UserStorage is the slice of the store the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
