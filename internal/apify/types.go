package apify

import "encoding/json"

// Run status vocabulary reported by the actor API.
const (
	RunStatusReady     = "READY"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// Run describes one actor run as reported by the API.
type Run struct {
	ID        string `json:"id"`
	ActorID   string `json:"actId"`
	Status    string `json:"status"`
	StartedAt string `json:"startedAt,omitempty"`
	// Some actors expose a percent-complete hint; absent for most.
	Progress float64 `json:"progress,omitempty"`
}

// runEnvelope is the {"data": ...} wrapper the API puts around responses.
type runEnvelope struct {
	Data Run `json:"data"`
}

// ActorInput is the actor-specific run input. Field names follow the
// axesso amazon scraper actors.
type ActorInput struct {
	URLs       []string `json:"urls,omitempty"`
	ASINs      []string `json:"asins,omitempty"`
	Country    string   `json:"domainCode,omitempty"`
	MaxReviews int      `json:"maxReviews,omitempty"`
	SortBy     string   `json:"sortBy,omitempty"`
	Proxy      *Proxy   `json:"proxyConfiguration,omitempty"`
}

// Proxy selects the actor-side proxy pool.
type Proxy struct {
	UseApifyProxy bool     `json:"useApifyProxy"`
	Groups        []string `json:"apifyProxyGroups,omitempty"`
}

// Item is one raw dataset record; the field mapping happens at ingestion.
type Item = json.RawMessage
