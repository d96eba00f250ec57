package metrics

import (
	"sync/atomic"
	"time"
)

// Collector gathers cheap process-local counters for the /metrics endpoint.
type Collector struct {
	totalRequests     uint64
	errorRequests     uint64
	rateLimited       uint64
	totalDurationMs   uint64
	recordsCalculated uint64
	recordsClosed     uint64
	recordsPaid       uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordCalculated() {
	atomic.AddUint64(&c.recordsCalculated, 1)
}

func (c *Collector) RecordClosed() {
	atomic.AddUint64(&c.recordsClosed, 1)
}

func (c *Collector) RecordPaid() {
	atomic.AddUint64(&c.recordsPaid, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":       atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"payRecordsCalculated":   atomic.LoadUint64(&c.recordsCalculated),
		"payRecordsClosed":       atomic.LoadUint64(&c.recordsClosed),
		"payRecordsPaid":         atomic.LoadUint64(&c.recordsPaid),
	}
}
