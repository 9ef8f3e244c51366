// Package auth implements credential verification for login by email or username.
package auth

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Verifier resolves a login identifier to a user and checks the password.
// It is a pure predicate plus lookup: no sessions or tokens are created.
type Verifier struct {
	users repository.UserRepository
}

// NewVerifier creates a credential verifier backed by the given user repository.
func NewVerifier(users repository.UserRepository) *Verifier {
	return &Verifier{users: users}
}

// Authenticate resolves the identifier (email when it contains '@', username
// otherwise) and verifies the password against the stored hash. It returns
// (nil, nil) when no user matches or the password is wrong; an error is only
// returned on storage failure.
func (v *Verifier) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = v.users.GetByEmail(ctx, identifier)
	} else {
		user, err = v.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}
