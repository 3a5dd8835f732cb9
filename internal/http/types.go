package http

import "github.com/fyrsmithlabs/locus/pkg/registry"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Capabilities int    `json:"capabilities"`
	Uptime       string `json:"uptime"`
}

// CapabilitySummary is one capability in GET /api/v1/capabilities.
type CapabilitySummary struct {
	Capability string `json:"capability"`
	Entries    int    `json:"entries"`
	Primary    string `json:"primary,omitempty"`
}

// CapabilitiesResponse is the response body for GET /api/v1/capabilities.
type CapabilitiesResponse struct {
	Resolution   string              `json:"resolution"`
	Capabilities []CapabilitySummary `json:"capabilities"`
}

// CapabilityResponse is the response body for GET /api/v1/capabilities/:key.
type CapabilityResponse struct {
	Capability string               `json:"capability"`
	Resolved   string               `json:"resolved,omitempty"`
	Entries    []registry.EntryInfo `json:"entries"`
}

// GreetResponse is the response body for GET /api/v1/greet.
type GreetResponse struct {
	Greeting string `json:"greeting"`
	Style    string `json:"style"`
}
