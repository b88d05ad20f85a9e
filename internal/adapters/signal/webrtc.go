package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/camrelay/internal/core"
	"github.com/pion/webrtc/v4"
)

// inboundMessage is what the viewer sends. Browsers post either plain
// strings or the objects produced by RTCSessionDescription/RTCIceCandidate.
type inboundMessage struct {
	Type      string          `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (m inboundMessage) sdp() (string, error) {
	if len(m.SDP) == 0 || string(m.SDP) == "null" {
		return "", fmt.Errorf("%w: sdp message without sdp", core.ErrMalformedInput)
	}
	if m.SDP[0] == '"' {
		var s string
		if err := json.Unmarshal(m.SDP, &s); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
		}
		return s, nil
	}
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(m.SDP, &desc); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
	}
	return desc.SDP, nil
}

// candidate returns the raw candidate line. A null candidate is the
// end-of-candidates marker and comes back empty.
func (m inboundMessage) candidate() (string, error) {
	if len(m.Candidate) == 0 || string(m.Candidate) == "null" {
		return "", nil
	}
	if m.Candidate[0] == '"' {
		var s string
		if err := json.Unmarshal(m.Candidate, &s); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
		}
		return s, nil
	}
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(m.Candidate, &ci); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
	}
	return ci.Candidate, nil
}
