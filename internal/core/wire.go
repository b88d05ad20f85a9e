package core

import (
	"encoding/json"
	"strings"
)

// MessageType values of the viewer socket protocol.
const (
	MessageTypeSDP       = "sdp"
	MessageTypeCandidate = "candidate"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// ViewerMessage is the outbound shape sent on the viewer socket.
type ViewerMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp,omitempty"`
}

func EncodeViewerMessage(m ViewerMessage) (Frame, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// DeviceFragment terminates s with CRLF unless it already ends a line.
func DeviceFragment(s string) Frame {
	if strings.HasSuffix(s, "\n") {
		return Frame(s)
	}
	return Frame(s + "\r\n")
}
