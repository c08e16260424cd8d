package udp

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// Stats is a snapshot of the counters of one transport
type Stats struct {
	Requests   uint64 // Calls to Send
	Attempts   uint64 // Send attempts including dropped ones
	Retries    uint64 // Attempts after the first one
	Drops      uint64 // Attempts discarded by the drop simulation
	Timeouts   uint64 // Calls that exhausted their retry budget
	Unmatched  uint64 // Replies without a waiting request (late or foreign)
	Duplicates uint64 // Additional replies for a request that already got one
	Malformed  uint64 // Datagrams too short to carry a request id
}

// transportMetrics holds the metrics of one transport in its own set, so several
// transports in one process (e.g. tests) do not share counters
type transportMetrics struct {
	set        *metrics.Set
	requests   *metrics.Counter
	attempts   *metrics.Counter
	retries    *metrics.Counter
	drops      *metrics.Counter
	timeouts   *metrics.Counter
	unmatched  *metrics.Counter
	duplicates *metrics.Counter
	malformed  *metrics.Counter
	duration   *metrics.Histogram
}

func newTransportMetrics(endpoint string) *transportMetrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`fbook_udp_%s{endpoint=%q}`, metric, endpoint)
	}

	return &transportMetrics{
		set:        set,
		requests:   set.NewCounter(name("requests_total")),
		attempts:   set.NewCounter(name("attempts_total")),
		retries:    set.NewCounter(name("retries_total")),
		drops:      set.NewCounter(name("dropped_total")),
		timeouts:   set.NewCounter(name("timeouts_total")),
		unmatched:  set.NewCounter(name("unmatched_replies_total")),
		duplicates: set.NewCounter(name("duplicate_replies_total")),
		malformed:  set.NewCounter(name("malformed_datagrams_total")),
		duration:   set.NewHistogram(name("request_duration_seconds")),
	}
}

// observe records the duration of one call
func (m *transportMetrics) observe(start time.Time) {
	m.duration.Update(time.Since(start).Seconds())
}

func (m *transportMetrics) snapshot() Stats {
	return Stats{
		Requests:   m.requests.Get(),
		Attempts:   m.attempts.Get(),
		Retries:    m.retries.Get(),
		Drops:      m.drops.Get(),
		Timeouts:   m.timeouts.Get(),
		Unmatched:  m.unmatched.Get(),
		Duplicates: m.duplicates.Get(),
		Malformed:  m.malformed.Get(),
	}
}

func (m *transportMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
