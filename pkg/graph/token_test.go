package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	token  string
	err    error
	calls  int
	scopes []string
}

func (f *fakeCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls++
	f.scopes = opts.Scopes

	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestAcquireTokenScopesAudience(t *testing.T) {
	cred := &fakeCredential{token: "secret-token"}
	provider := NewTokenProvider(cred)

	token, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", token)
	assert.Equal(t, []string{"https://graph.microsoft.com/.default"}, cred.scopes)
}

func TestAcquireTokenNormalizesAudience(t *testing.T) {
	cred := &fakeCredential{token: "secret-token"}
	provider := NewTokenProvider(cred)

	_, err := provider.AcquireToken(context.Background(), "https://storage.azure.com/")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://storage.azure.com/.default"}, cred.scopes)
}

func TestAcquireTokenCachesPerAudience(t *testing.T) {
	cred := &fakeCredential{token: "secret-token"}
	provider := NewTokenProvider(cred)

	_, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.NoError(t, err)
	_, err = provider.AcquireToken(context.Background(), GraphAudience)
	require.NoError(t, err)
	assert.Equal(t, 1, cred.calls)

	_, err = provider.AcquireToken(context.Background(), MonitorAudience)
	require.NoError(t, err)
	assert.Equal(t, 2, cred.calls)
}

func TestAcquireTokenTrimsWhitespace(t *testing.T) {
	cred := &fakeCredential{token: "  secret-token\n"}
	provider := NewTokenProvider(cred)

	token, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token)
}

func TestAcquireTokenCredentialFailure(t *testing.T) {
	cause := errors.New("managed identity endpoint unreachable")
	cred := &fakeCredential{err: cause}
	provider := NewTokenProvider(cred)

	_, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.Error(t, err)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, GraphAudience, authErr.Audience)
	assert.ErrorIs(t, err, cause)
}

func TestAcquireTokenEmptyToken(t *testing.T) {
	cred := &fakeCredential{token: "   "}
	provider := NewTokenProvider(cred)

	_, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)

	// A failed acquisition is not cached; the next call asks again.
	_, _ = provider.AcquireToken(context.Background(), GraphAudience)
	assert.Equal(t, 2, cred.calls)
}

func TestAuthenticationErrorNeverContainsToken(t *testing.T) {
	cred := &fakeCredential{token: "super-secret-value"}
	provider := NewTokenProvider(cred)

	_, err := provider.AcquireToken(context.Background(), GraphAudience)
	require.NoError(t, err)

	failing := &fakeCredential{err: errors.New("boom")}
	_, err = NewTokenProvider(failing).AcquireToken(context.Background(), GraphAudience)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-value")
}
