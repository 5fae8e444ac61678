package domain

import (
	"fmt"
	"time"
)

// NotAvailable es el centinela textual cuando no hay dato.
const NotAvailable = "N/A"

type PerformanceSample struct {
	LatencyMS       int64     `json:"latency_ms"`
	TokenUsage      int       `json:"token_usage"`
	TokenUsageKnown bool      `json:"token_usage_known"`
	ModelVersion    string    `json:"model_version"`
	RecordedAt      time.Time `json:"recorded_at"`
}

func (p PerformanceSample) LatencyLabel() string {
	return fmt.Sprintf("%dms", p.LatencyMS)
}

func (p PerformanceSample) TokenUsageLabel() string {
	if !p.TokenUsageKnown {
		return NotAvailable
	}
	return fmt.Sprintf("%d tokens", p.TokenUsage)
}
