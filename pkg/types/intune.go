package types

import "time"

// ManagedDevice is the projection of a Graph managedDevice the runbooks
// operate on. Fields map 1:1 to the deviceManagement/managedDevices resource.
type ManagedDevice struct {
	ID                        string    `json:"id"`
	DeviceName                string    `json:"deviceName"`
	OperatingSystem           string    `json:"operatingSystem"`
	OSVersion                 string    `json:"osVersion"`
	ComplianceState           string    `json:"complianceState"`
	LastSyncDateTime          time.Time `json:"lastSyncDateTime"`
	EnrolledDateTime          time.Time `json:"enrolledDateTime"`
	UserID                    string    `json:"userId"`
	UserPrincipalName         string    `json:"userPrincipalName"`
	UserDisplayName           string    `json:"userDisplayName"`
	EmailAddress              string    `json:"emailAddress"`
	SerialNumber              string    `json:"serialNumber"`
	Model                     string    `json:"model"`
	Manufacturer              string    `json:"manufacturer"`
	DeviceCategoryDisplayName string    `json:"deviceCategoryDisplayName"`
}

// DaysSinceSync reports whole days since the device last checked in.
func (d ManagedDevice) DaysSinceSync(now time.Time) int {
	if d.LastSyncDateTime.IsZero() {
		return -1
	}
	return int(now.Sub(d.LastSyncDateTime).Hours() / 24)
}

type DeviceCategory struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// DetectedApp is one row of the tenant-wide application inventory.
type DetectedApp struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Publisher   string `json:"publisher"`
	Platform    string `json:"platform"`
	DeviceCount int    `json:"deviceCount"`
}

// CompliancePolicyState is a device's evaluation result for one policy.
type CompliancePolicyState struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	PlatformType string `json:"platformType"`
	State        string `json:"state"`
	SettingCount int    `json:"settingCount"`
}

type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
	Department        string `json:"department"`
	JobTitle          string `json:"jobTitle"`
	UsageLocation     string `json:"usageLocation"`
	AccountEnabled    bool   `json:"accountEnabled"`
}

// Application is an app registration with its credential sets, used by the
// credential expiry report.
type Application struct {
	ID                  string       `json:"id"`
	AppID               string       `json:"appId"`
	DisplayName         string       `json:"displayName"`
	PasswordCredentials []Credential `json:"passwordCredentials"`
	KeyCredentials      []Credential `json:"keyCredentials"`
}

// Credential is a client secret or certificate on an app registration. The
// secret value itself is never returned by Graph and never appears here.
type Credential struct {
	KeyID         string    `json:"keyId"`
	DisplayName   string    `json:"displayName"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
}
