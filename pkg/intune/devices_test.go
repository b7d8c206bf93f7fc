package intune

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/graph"
	"github.com/stoiczubi/Azure-Automation-Runbooks-sub000/pkg/types"
)

// withTestServer points the package at a local server for one test.
func withTestServer(t *testing.T, handler http.Handler) *graph.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	previous := baseURL
	baseURL = server.URL
	t.Cleanup(func() { baseURL = previous })

	return graph.NewClient("test-token")
}

func TestListManagedDevicesFollowsPages(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/deviceManagement/managedDevices", func(w http.ResponseWriter, r *http.Request) {
		page := map[string]any{
			"value": []map[string]any{
				{"id": "d1", "deviceName": "LAPTOP-1", "operatingSystem": "Windows"},
				{"id": "d2", "deviceName": "LAPTOP-2", "operatingSystem": "Windows"},
			},
			"@odata.nextLink": baseURL + "/deviceManagement/managedDevices/page2",
		}
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/deviceManagement/managedDevices/page2", func(w http.ResponseWriter, r *http.Request) {
		page := map[string]any{
			"value": []map[string]any{
				{"id": "d3", "deviceName": "MAC-1", "operatingSystem": "macOS"},
			},
		}
		json.NewEncoder(w).Encode(page)
	})

	client := withTestServer(t, &mux)

	devices, err := ListManagedDevices(context.Background(), client, DeviceFilter{})
	require.NoError(t, err)

	require.Len(t, devices, 3)
	assert.Equal(t, []string{"d1", "d2", "d3"},
		[]string{devices[0].ID, devices[1].ID, devices[2].ID})
}

func TestListManagedDevicesStaleness(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := map[string]any{
			"value": []map[string]any{
				{"id": "fresh", "lastSyncDateTime": now.Add(-24 * time.Hour).Format(time.RFC3339)},
				{"id": "stale", "lastSyncDateTime": now.Add(-10 * 24 * time.Hour).Format(time.RFC3339)},
				{"id": "never"},
			},
		}
		json.NewEncoder(w).Encode(page)
	})

	client := withTestServer(t, handler)

	devices, err := ListManagedDevices(context.Background(), client, DeviceFilter{StaleDays: 7, Now: now})
	require.NoError(t, err)

	// Devices that never synced are stale by definition.
	require.Len(t, devices, 2)
	assert.Equal(t, "stale", devices[0].ID)
	assert.Equal(t, "never", devices[1].ID)
}

func TestListManagedDevicesOSFilter(t *testing.T) {
	var gotFilter string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	})

	client := withTestServer(t, handler)

	_, err := ListManagedDevices(context.Background(), client, DeviceFilter{OS: "Windows"})
	require.NoError(t, err)
	assert.Equal(t, "operatingSystem eq 'Windows'", gotFilter)
}

func TestSyncDevice(t *testing.T) {
	var gotMethod, gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	client := withTestServer(t, handler)

	require.NoError(t, SyncDevice(context.Background(), client, "dev-1"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/deviceManagement/managedDevices/dev-1/syncDevice", gotPath)
}

func TestAssignDeviceCategory(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	client := withTestServer(t, handler)

	require.NoError(t, AssignDeviceCategory(context.Background(), client, "dev-1", "cat-9"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/deviceManagement/managedDevices/dev-1/deviceCategory/$ref", gotPath)
	assert.Equal(t, baseURL+"/deviceManagement/deviceCategories/cat-9", gotBody["@odata.id"])
}

func TestGetUserAndUpdateUser(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/users/jdoe@contoso.com", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.User{ID: "u1", UserPrincipalName: "jdoe@contoso.com", Department: "Sales"})
	})

	var gotPatch map[string]any
	mux.HandleFunc("/users/u1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPatch)
		w.WriteHeader(http.StatusNoContent)
	})

	client := withTestServer(t, &mux)

	user, err := GetUser(context.Background(), client, "jdoe@contoso.com")
	require.NoError(t, err)
	assert.Equal(t, "Sales", user.Department)

	require.NoError(t, UpdateUser(context.Background(), client, user.ID, map[string]any{"department": "Marketing"}))
	assert.Equal(t, "Marketing", gotPatch["department"])
}

func TestGetUserNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"Request_ResourceNotFound","message":"user does not exist"}}`)
	})

	client := withTestServer(t, handler)

	_, err := GetUser(context.Background(), client, "ghost@contoso.com")
	require.Error(t, err)
	assert.True(t, graph.IsNotFound(err))
}
