package orch

import (
	"fmt"
	"sync"

	"github.com/dkeye/camrelay/internal/app"
	"github.com/dkeye/camrelay/internal/candidate"
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/dkeye/camrelay/internal/metrics"
	"github.com/dkeye/camrelay/internal/sdpcodec"
	"github.com/rs/zerolog/log"
)

// CodecPolicy says which descriptions get the forced audio codec.
type CodecPolicy struct {
	Rewriter      sdpcodec.Rewriter
	RewriteAnswer bool
	RewriteOffer  bool
}

// Orchestrator drives the device/viewer state machine. Every event runs
// under mu, so supersede and dedup check-and-insert are atomic.
type Orchestrator struct {
	Registry *app.Registry
	Dedup    *candidate.DedupStore
	Metrics  *metrics.Metrics
	Codec    CodecPolicy

	mu sync.Mutex
}

func New(reg *app.Registry, dedup *candidate.DedupStore, m *metrics.Metrics, codec CodecPolicy) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Dedup:    dedup,
		Metrics:  m,
		Codec:    codec,
	}
}

// forward hands f from one role to the live transport of its peer without
// waiting for delivery.
func (o *Orchestrator) forward(from domain.Role, f core.Frame) core.ForwardResult {
	to := from.Peer()
	conn, ok := o.Registry.Conn(to)
	if !ok {
		return core.ForwardResult{
			Status: core.NoTransport,
			Err:    fmt.Errorf("%w: no live %s", core.ErrTransportUnavailable, to),
		}
	}
	if err := conn.TrySend(f); err != nil {
		return core.ForwardResult{Status: core.Failed, ConnID: conn.ID(), Err: err}
	}
	return core.ForwardResult{Status: core.Delivered, ConnID: conn.ID()}
}

// report logs and counts a forward outcome; failures never propagate to the sender.
func (o *Orchestrator) report(what string, from domain.Role, res core.ForwardResult, delivered string) {
	to := from.Peer()
	switch res.Status {
	case core.Delivered:
		o.Metrics.Inc(delivered)
		log.Info().Str("module", "orch").Str("to", to.String()).Str("conn", res.ConnID).Msg(what + " forwarded")
	case core.NoTransport:
		o.Metrics.Inc(metrics.TransportUnavailable)
		log.Warn().Err(res.Err).Str("module", "orch").Str("to", to.String()).Msg(what + " dropped")
	case core.Failed:
		o.Metrics.Inc(metrics.ForwardFailed)
		log.Error().Err(res.Err).Str("module", "orch").Str("to", to.String()).Str("conn", res.ConnID).Msg(what + " forward failed")
	}
}

// OnMalformed records input that was rejected before reaching the state machine.
func (o *Orchestrator) OnMalformed(from domain.Role, err error) {
	o.Metrics.Inc(metrics.MalformedInput)
	log.Warn().Err(err).Str("module", "orch").Str("from", from.String()).Msg("malformed input dropped")
}

// OnUnknown records a message type the relay does not handle.
func (o *Orchestrator) OnUnknown(from domain.Role, msgType string) {
	o.Metrics.Inc(metrics.ProtocolViolation)
	log.Debug().Str("module", "orch").Str("from", from.String()).Str("type", msgType).Msg("unknown message ignored")
}
