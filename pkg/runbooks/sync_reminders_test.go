package runbooks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

func TestPendingRecipientsDedupes(t *testing.T) {
	devices := []types.ManagedDevice{
		{ID: "d1", EmailAddress: "jdoe@contoso.com"},
		{ID: "d2", EmailAddress: "JDoe@contoso.com"}, // same user, second device
		{ID: "d3", EmailAddress: "asmith@contoso.com"},
		{ID: "d4"}, // no primary user mail
	}

	pending := pendingRecipients(devices)

	assert.Len(t, pending, 2)
	assert.True(t, pending["jdoe@contoso.com"])
	assert.True(t, pending["asmith@contoso.com"])
}

func TestOSKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Windows", "windows"},
		{"Windows 10", "windows_10"},
		{"  macOS  ", "macos"},
		{"", "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, osKey(tc.in))
		})
	}
}
