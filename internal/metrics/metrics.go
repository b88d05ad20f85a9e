package metrics

import "sync"

// Event names counted by the relay.
const (
	OffersReceived       = "offers_received"
	SDPForwarded         = "sdp_forwarded"
	CandidatesForwarded  = "candidates_forwarded"
	CandidatesDuplicate  = "candidates_duplicate"
	MalformedInput       = "malformed_input"
	TransportUnavailable = "transport_unavailable"
	ForwardFailed        = "forward_failed"
	ProtocolViolation    = "protocol_violation"
	Reconnects           = "reconnects"
	RateLimited          = "rate_limited"
)

// Metrics is a minimal, concurrency-safe counter registry.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

// Inc is safe on a nil receiver so optional wiring stays simple.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
