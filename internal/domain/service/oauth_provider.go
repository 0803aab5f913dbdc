package service

import "context"

// OAuthUserInfo is the verified identity payload returned by the external
// provider after a successful code exchange.
type OAuthUserInfo struct {
	Email    string
	FullName string
}

// OAuthProvider delegates federated login to an external identity provider.
type OAuthProvider interface {
	// AuthURL builds the provider's authorization redirect for the given
	// anti-forgery state.
	AuthURL(state string) string

	// ExchangeCode redeems the authorization code for a verified user-info
	// payload. The provider validates code and state; this service only
	// resolves the resulting email against local identities.
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}
