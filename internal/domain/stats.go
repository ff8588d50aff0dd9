package domain

import "time"

// Hit is one public access to an endpoint, reported to the stats collector.
type Hit struct {
	URI       string
	IP        string
	Timestamp time.Time
	// RequestID of the access, forwarded to the collector for tracing.
	RequestID string
}
