// Package analytics records what the engine is asked and how it answers.
// Events travel through Kafka as a typed Envelope; an Aggregator folds them
// into the summary served at /api/v1/analytics.
package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventIndexBuild EventType = "index_build"
)

type QueryEvent struct {
	Mode      string    `json:"mode"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TopK      int       `json:"top_k,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Postings    int       `json:"postings"`
	DurationMs  float64   `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Envelope carries exactly one event; Type says which field is set.
type Envelope struct {
	Type  EventType   `json:"type"`
	Query *QueryEvent `json:"query,omitempty"`
	Index *IndexEvent `json:"index,omitempty"`
}

func NewQueryEnvelope(e QueryEvent) Envelope {
	return Envelope{Type: EventQuery, Query: &e}
}

func NewIndexEnvelope(e IndexEvent) Envelope {
	return Envelope{Type: EventIndexBuild, Index: &e}
}

// Key groups events for Kafka partitioning: queries by mode, builds by corpus.
func (e Envelope) Key() string {
	switch {
	case e.Query != nil:
		return "query:" + e.Query.Mode
	case e.Index != nil:
		return "index:" + e.Index.Fingerprint
	default:
		return string(e.Type)
	}
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(Envelope)
}
