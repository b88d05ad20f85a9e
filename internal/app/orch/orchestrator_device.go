package orch

import (
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/dkeye/camrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// OnDeviceOffer attaches the device stream, stores its offer and pushes the
// offer to the viewer when one is connected. Otherwise the offer waits.
func (o *Orchestrator) OnDeviceOffer(conn core.SignalConnection, offer string) core.ForwardResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Metrics.Inc(metrics.OffersReceived)
	if o.Registry.Attach(domain.RoleDevice, conn) {
		o.Metrics.Inc(metrics.Reconnects)
	}
	// Every offer opens a new negotiation round.
	o.Dedup.Reset()
	o.Registry.SetSDP(domain.RoleDevice, offer)
	log.Info().Str("module", "orch").Str("conn", conn.ID()).Int("sdp_len", len(offer)).Msg("device offer stored")

	if _, ok := o.Registry.Conn(domain.RoleViewer); !ok {
		log.Info().Str("module", "orch").Msg("no viewer yet, offer waits")
		return core.ForwardResult{Status: core.NoTransport}
	}
	return o.sendOfferToViewer(offer)
}

// OnDeviceClosed ends the device session when conn is still the live stream.
func (o *Orchestrator) OnDeviceClosed(connID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Registry.Detach(domain.RoleDevice, connID) {
		log.Debug().Str("module", "orch").Str("conn", connID).Msg("stale device close ignored")
		return
	}
	o.Dedup.Reset()
	log.Info().Str("module", "orch").Str("conn", connID).Msg("device session ended, candidates reset")
}

// caller holds o.mu
func (o *Orchestrator) sendOfferToViewer(offer string) core.ForwardResult {
	if o.Codec.RewriteOffer {
		offer = o.Codec.Rewriter.Rewrite(offer)
	}
	frame, err := core.EncodeViewerMessage(core.ViewerMessage{Type: core.MessageTypeSDP, SDP: offer})
	if err != nil {
		res := core.ForwardResult{Status: core.Failed, Err: err}
		o.report("offer", domain.RoleDevice, res, metrics.SDPForwarded)
		return res
	}
	res := o.forward(domain.RoleDevice, frame)
	o.report("offer", domain.RoleDevice, res, metrics.SDPForwarded)
	return res
}
