package signal

import (
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.ViewerMessage{Type: core.MessageTypePong})
}

func (ctl *SignalWSController) handleSDP(conn *WsSignalConn, msg inboundMessage) {
	sdp, err := msg.sdp()
	if err != nil {
		ctl.Orch.OnMalformed(domain.RoleViewer, err)
		return
	}
	// Outcomes are logged and counted by the orchestrator.
	_, _ = ctl.Orch.OnViewerSDP(conn.id, sdp)
}

func (ctl *SignalWSController) handleCandidate(conn *WsSignalConn, msg inboundMessage) {
	raw, err := msg.candidate()
	if err != nil {
		ctl.Orch.OnMalformed(domain.RoleViewer, err)
		return
	}
	_, _ = ctl.Orch.OnViewerCandidate(conn.id, raw)
}
