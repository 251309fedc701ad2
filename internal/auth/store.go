package auth

import "context"

// UserStore is the lookup capability the identity verifiers need from the
// relational store. Implementations return ErrNotFound for absent users.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}
