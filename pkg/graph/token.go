package graph

import (
	"context"
	"errors"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// Resource audiences the runbooks acquire tokens for.
const (
	GraphAudience   = "https://graph.microsoft.com"
	StorageAudience = "https://storage.azure.com"
	MonitorAudience = "https://monitor.azure.com"
)

// TokenProvider turns an azcore credential into plain bearer tokens, one per
// resource audience per run. Runs are short-lived batch jobs, so a token is
// treated as valid for the whole run and never refreshed mid-run. Token
// values are never logged and never persisted.
type TokenProvider struct {
	cred   azcore.TokenCredential
	tokens map[string]string
}

func NewTokenProvider(cred azcore.TokenCredential) *TokenProvider {
	return &TokenProvider{
		cred:   cred,
		tokens: make(map[string]string),
	}
}

// AcquireToken returns a bearer token scoped to the given resource audience,
// reusing the one already acquired for that audience when present.
func (p *TokenProvider) AcquireToken(ctx context.Context, audience string) (string, error) {
	if token, ok := p.tokens[audience]; ok {
		return token, nil
	}

	opts := policy.TokenRequestOptions{
		Scopes: []string{strings.TrimSuffix(audience, "/") + "/.default"},
	}
	accessToken, err := p.cred.GetToken(ctx, opts)
	if err != nil {
		return "", &AuthenticationError{Audience: audience, Err: err}
	}

	token := strings.TrimSpace(accessToken.Token)
	if token == "" {
		return "", &AuthenticationError{Audience: audience, Err: errors.New("identity returned an empty token")}
	}

	p.tokens[audience] = token
	return token, nil
}
