package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderRun is one adapter's raw contribution to an aggregation.
type ProviderRun struct {
	Provider  string          `json:"provider"`
	Records   int             `json:"records"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
	Error     string          `json:"error,omitempty"`
}

// RunRecord is a persisted aggregation for auditing. It is never read back
// to serve a stats request.
type RunRecord struct {
	ID             uuid.UUID
	Address        string
	Year           int
	StartedAt      time.Time
	Duration       time.Duration
	RawCount       int
	DedupCount     int
	TotalVolumeUSD decimal.Decimal
	UserClass      string
	Providers      []ProviderRun
	CreatedAt      time.Time
}

// Failed reports whether any provider stopped early.
func (r RunRecord) Failed() bool {
	for _, p := range r.Providers {
		if p.Error != "" {
			return true
		}
	}
	return false
}
