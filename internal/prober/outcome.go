package prober

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Target states.
const (
	StateUp   = "up"
	StateDown = "down"
)

// Outcome kinds besides the httpclient error kinds.
const (
	KindOK                = "ok"
	KindExpectationFailed = "expectation_failed"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Outcome is the result of probing one target once.
type Outcome struct {
	TargetID   string        `json:"target_id"`
	TargetName string        `json:"target_name"`
	State      string        `json:"state"`
	Kind       string        `json:"kind"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Detail     string        `json:"detail,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Up reports whether the target passed every check.
func (o Outcome) Up() bool { return o.State == StateUp }

// Report summarizes one probe pass.
type Report struct {
	Outcomes []Outcome     `json:"outcomes"`
	Up       int           `json:"up"`
	Down     int           `json:"down"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	P99      time.Duration `json:"p99"`

	histogram *hdrhistogram.Histogram
}

func newReport(capacity int) *Report {
	return &Report{
		Outcomes: make([]Outcome, 0, capacity),
		// 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Up() {
		r.Up++
	} else {
		r.Down++
	}

	latencyUs := o.Latency.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}
	_ = r.histogram.RecordValue(latencyUs)
}

func (r *Report) finalize() {
	if r.histogram.TotalCount() == 0 {
		return
	}
	r.P50 = time.Duration(r.histogram.ValueAtQuantile(50)) * time.Microsecond
	r.P95 = time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond
	r.P99 = time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond
}

// AllUp reports whether every probed target is up.
func (r *Report) AllUp() bool {
	return r != nil && r.Down == 0
}
