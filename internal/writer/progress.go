package writer

import "time"

// Phase names the pass a Progress event belongs to.
type Phase string

const (
	PhaseWriting   Phase = "writing"
	PhaseVerifying Phase = "verifying"
)

// Progress is a cumulative snapshot of one transfer phase.
type Progress struct {
	Phase        Phase  `json:"phase"`
	BytesWritten uint64 `json:"bytes_written"`
	TotalBytes   uint64 `json:"total_bytes"`
	SpeedBps     uint64 `json:"speed_bps"`
	EtaSeconds   uint64 `json:"eta_seconds"`
}

// Percent returns the completed fraction in [0, 100].
func (p Progress) Percent() float64 {
	if p.TotalBytes == 0 {
		return 0
	}
	return float64(p.BytesWritten) / float64(p.TotalBytes) * 100
}

// Sink receives progress events in emission order.
type Sink interface {
	Progress(Progress)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Progress)

func (f SinkFunc) Progress(p Progress) { f(p) }

type discardSink struct{}

func (discardSink) Progress(Progress) {}

// Rates computes the cumulative average throughput and the time left.
// speed is 0 when no time has elapsed; eta is 0 when speed is 0.
func Rates(done, total uint64, elapsed time.Duration) (speed, eta uint64) {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0, 0
	}
	speed = uint64(float64(done) / secs)
	if speed == 0 {
		return 0, 0
	}
	var remaining uint64
	if total > done {
		remaining = total - done
	}
	return speed, remaining / speed
}

// meter timestamps progress for one phase from its own start time.
type meter struct {
	phase Phase
	total uint64
	start time.Time
	now   func() time.Time
}

func newMeter(phase Phase, total uint64, now func() time.Time) *meter {
	return &meter{phase: phase, total: total, start: now(), now: now}
}

func (m *meter) at(done uint64) Progress {
	speed, eta := Rates(done, m.total, m.now().Sub(m.start))
	return Progress{
		Phase:        m.phase,
		BytesWritten: done,
		TotalBytes:   m.total,
		SpeedBps:     speed,
		EtaSeconds:   eta,
	}
}
