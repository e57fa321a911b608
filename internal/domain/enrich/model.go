package enrich

import "time"

// Media is what the catalog knows about a track.
type Media struct {
	Cover      string `json:"cover,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Request controls an enrichment pass.
type Request struct {
	// Force looks up and overwrites media even when present.
	Force bool
	// Publish opens voting after enrichment.
	Publish bool
}

// Result counts what an enrichment pass did.
type Result struct {
	WeekID    int        `json:"week_id"`
	Processed int        `json:"processed"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Locked    int        `json:"locked"`
	NotFound  int        `json:"not_found"`
	Failed    int        `json:"failed"`
	Opened    bool       `json:"opened"`
	ClosesAt  *time.Time `json:"closes_at,omitempty"`
}
