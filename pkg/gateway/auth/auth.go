package auth

import (
	"context"
	"errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the caller identity attached to an authenticated request.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// Chain tries each authenticator in order and returns the first success.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, token string) (Principal, error) {
	err := ErrUnauthenticated
	for _, a := range c {
		if a == nil {
			continue
		}
		p, aerr := a.Authenticate(ctx, token)
		if aerr == nil {
			return p, nil
		}
		err = errors.Join(err, aerr)
	}
	return Principal{}, err
}
