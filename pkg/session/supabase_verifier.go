package session

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseVerifier resolves access tokens issued by a hosted Supabase
// project. Deployments that front Supabase auth use it in place of a
// local session store: the token is validated against the remote
// service, never minted here.
type SupabaseVerifier struct {
	client *supabase.Client
}

// NewSupabaseVerifier builds a verifier against the project URL using
// the service role key.
func NewSupabaseVerifier(projectURL, serviceRoleKey string) (*SupabaseVerifier, error) {
	client, err := supabase.NewClient(projectURL, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &SupabaseVerifier{client: client}, nil
}

// NewSession is unsupported: tokens are issued by Supabase sign-in, not
// by this service.
func (v *SupabaseVerifier) NewSession(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("sessions are issued by the identity provider")
}

// UserByToken validates the access token remotely and returns the
// Supabase user ID. The client carries the context implicitly in its
// underlying HTTP request.
func (v *SupabaseVerifier) UserByToken(_ context.Context, token string) (string, bool, error) {
	user, err := v.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", false, nil
	}
	return user.ID.String(), true, nil
}

// DeleteSession is a no-op; revocation happens at the provider.
func (v *SupabaseVerifier) DeleteSession(_ context.Context, _ string) error {
	return nil
}
