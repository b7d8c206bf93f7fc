package intune

// SwapBaseURL points the package at a test server and returns a restore
// func. Only visible to tests in this directory.
func SwapBaseURL(url string) func() {
	previous := baseURL
	baseURL = url
	return func() { baseURL = previous }
}
