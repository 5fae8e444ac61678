package service

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"centone-chat/internal/domain"
)

const defaultPerformanceCacheSize = 1024

// PerformanceTracker guarda la última muestra de rendimiento por owner.
type PerformanceTracker struct {
	samples *lru.Cache[string, domain.PerformanceSample]
}

func NewPerformanceTracker(size int) (*PerformanceTracker, error) {
	if size <= 0 {
		size = defaultPerformanceCacheSize
	}
	cache, err := lru.New[string, domain.PerformanceSample](size)
	if err != nil {
		return nil, err
	}
	return &PerformanceTracker{samples: cache}, nil
}

// Record reemplaza la muestra previa del owner. usageTokens nil significa "N/A".
func (p *PerformanceTracker) Record(owner domain.Owner, start, end time.Time, usageTokens *int, modelVersion string) domain.PerformanceSample {
	sample := domain.PerformanceSample{
		LatencyMS:    end.Sub(start).Milliseconds(),
		ModelVersion: modelVersion,
		RecordedAt:   end,
	}
	if sample.LatencyMS < 0 {
		sample.LatencyMS = 0
	}
	if usageTokens != nil {
		sample.TokenUsage = *usageTokens
		sample.TokenUsageKnown = true
	}
	p.samples.Add(owner.Key(), sample)
	return sample
}

func (p *PerformanceTracker) Latest(owner domain.Owner) (domain.PerformanceSample, bool) {
	return p.samples.Get(owner.Key())
}
