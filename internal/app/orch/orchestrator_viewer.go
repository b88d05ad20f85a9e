package orch

import (
	"fmt"
	"strings"

	"github.com/dkeye/camrelay/internal/candidate"
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/dkeye/camrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// OnViewerAttach registers the viewer socket and replays a stored device offer.
func (o *Orchestrator) OnViewerAttach(conn core.SignalConnection) core.ForwardResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Registry.Attach(domain.RoleViewer, conn) {
		o.Metrics.Inc(metrics.Reconnects)
	}
	dev, ok := o.Registry.Get(domain.RoleDevice)
	if !ok || dev.SDP == "" {
		return core.ForwardResult{Status: core.NoTransport}
	}
	log.Info().Str("module", "orch").Str("conn", conn.ID()).Msg("replaying stored device offer")
	return o.sendOfferToViewer(dev.SDP)
}

// OnViewerClosed ends the viewer session; device state is kept for a reconnect.
func (o *Orchestrator) OnViewerClosed(connID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Registry.Detach(domain.RoleViewer, connID) {
		log.Debug().Str("module", "orch").Str("conn", connID).Msg("stale viewer close ignored")
		return
	}
	log.Info().Str("module", "orch").Str("conn", connID).Msg("viewer session ended")
}

// OnViewerSDP stores the viewer's answer and streams it to the device.
// A non-nil error means the message was rejected at intake.
func (o *Orchestrator) OnViewerSDP(connID, sdp string) (core.ForwardResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkViewer(connID); err != nil {
		return core.ForwardResult{}, err
	}
	if strings.TrimSpace(sdp) == "" {
		err := fmt.Errorf("%w: empty sdp", core.ErrMalformedInput)
		o.OnMalformed(domain.RoleViewer, err)
		return core.ForwardResult{}, err
	}
	o.Registry.SetSDP(domain.RoleViewer, sdp)

	body := sdp
	if o.Codec.RewriteAnswer {
		body = o.Codec.Rewriter.Rewrite(body)
	}
	res := o.forward(domain.RoleViewer, core.DeviceFragment(body))
	o.report("answer", domain.RoleViewer, res, metrics.SDPForwarded)
	return res, nil
}

// OnViewerCandidate normalizes a trickled candidate and forwards it to the
// device the first time its identity is seen in this round.
func (o *Orchestrator) OnViewerCandidate(connID, raw string) (core.ForwardResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkViewer(connID); err != nil {
		return core.ForwardResult{}, err
	}
	if strings.TrimSpace(raw) == "" {
		// end-of-candidates marker
		return core.ForwardResult{Status: core.Suppressed}, nil
	}
	c, err := candidate.Parse(raw)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
		o.OnMalformed(domain.RoleViewer, err)
		return core.ForwardResult{}, err
	}
	id := c.Identity()
	if !o.Dedup.ShouldForward(id) {
		o.Metrics.Inc(metrics.CandidatesDuplicate)
		log.Debug().Str("module", "orch").Str("candidate", id.String()).Msg("duplicate candidate ignored")
		return core.ForwardResult{Status: core.Suppressed}, nil
	}

	line := c.Line()
	o.Registry.AppendCandidate(domain.RoleViewer, line)
	res := o.forward(domain.RoleViewer, core.DeviceFragment(line))
	o.report("candidate "+id.String(), domain.RoleViewer, res, metrics.CandidatesForwarded)
	return res, nil
}

// checkViewer rejects messages read from a socket that was already superseded.
// caller holds o.mu
func (o *Orchestrator) checkViewer(connID string) error {
	if o.Registry.IsCurrent(domain.RoleViewer, connID) {
		return nil
	}
	o.Metrics.Inc(metrics.ProtocolViolation)
	log.Warn().Str("module", "orch").Str("conn", connID).Msg("message from superseded viewer dropped")
	return fmt.Errorf("%w: connection %s is not the live viewer", core.ErrProtocolViolation, connID)
}
