package config

import "strings"

// Credentials identify a MiniMax account.
type Credentials struct {
	GroupID  string
	APIKey   string
	Endpoint string // "domestic", "overseas" or a base URL
}

// Valid reports whether both the group id and the api key are present.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.GroupID) != "" && strings.TrimSpace(c.APIKey) != ""
}

// BaseURL resolves the endpoint name to an API base URL.
func (c Credentials) BaseURL() string {
	return ResolveEndpoint(c.Endpoint)
}

// Masked returns the group id with everything past the first 8 characters hidden.
func (c Credentials) Masked() string {
	if len(c.GroupID) <= 8 {
		return c.GroupID
	}
	return c.GroupID[:8] + "***"
}

// ResolveEndpoint maps "domestic"/"overseas" to base URLs. Any other non-empty
// value is treated as a base URL so tests and proxies can point elsewhere.
func ResolveEndpoint(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "domestic", "default":
		return EndpointDomestic
	case "overseas":
		return EndpointOverseas
	default:
		return strings.TrimRight(name, "/")
	}
}
