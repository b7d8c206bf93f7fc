package runbooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

func TestExpiringCredentials(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	app := types.Application{
		DisplayName: "reporting-app",
		AppID:       "app-1",
		PasswordCredentials: []types.Credential{
			{KeyID: "expired", EndDateTime: now.AddDate(0, 0, -5)},
			{KeyID: "soon", EndDateTime: now.AddDate(0, 0, 10)},
			{KeyID: "far", EndDateTime: now.AddDate(0, 0, 90)},
		},
		KeyCredentials: []types.Credential{
			{KeyID: "cert-soon", EndDateTime: now.AddDate(0, 0, 29)},
			{KeyID: "cert-undated"},
		},
	}

	rows := ExpiringCredentials(app, now, 30)
	require.Len(t, rows, 3)

	byKey := map[string]ExpiryRow{}
	for _, row := range rows {
		byKey[row.KeyID] = row
	}

	assert.True(t, byKey["expired"].Expired)
	assert.Equal(t, -5, byKey["expired"].DaysRemaining)
	assert.Equal(t, "secret", byKey["expired"].CredentialType)

	assert.False(t, byKey["soon"].Expired)
	assert.Equal(t, 10, byKey["soon"].DaysRemaining)

	assert.Equal(t, "certificate", byKey["cert-soon"].CredentialType)

	_, farIncluded := byKey["far"]
	assert.False(t, farIncluded)
	_, undatedIncluded := byKey["cert-undated"]
	assert.False(t, undatedIncluded)
}

func TestExpiringCredentialsNoneInWindow(t *testing.T) {
	now := time.Now()
	app := types.Application{
		PasswordCredentials: []types.Credential{
			{KeyID: "ok", EndDateTime: now.AddDate(1, 0, 0)},
		},
	}

	assert.Empty(t, ExpiringCredentials(app, now, 30))
}
