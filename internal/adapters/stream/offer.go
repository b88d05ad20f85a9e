package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/sdpcodec"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrOfferTooLarge = errors.New("offer body too large")
	ErrNotSDP        = errors.New("body is not a session description")
)

// Offer is a device offer as it will be stored and forwarded.
type Offer struct {
	SDP string
	// Summary is zero when the body did not pass strict parsing.
	Summary sdpcodec.Summary
}

// ReadOffer extracts the device's SDP offer from r. The body is either raw
// SDP or JSON in one of the forms {"type","sdp"} or {"sdp":{"type","sdp"}}.
// Only empty and non-SDP bodies are rejected; firmware often leaves out
// optional lines, so a strict parse failure is just logged.
func ReadOffer(r *http.Request, maxBytes int64) (Offer, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return Offer{}, fmt.Errorf("%w: read body: %w", core.ErrMalformedInput, err)
	}
	if int64(len(body)) > maxBytes {
		return Offer{}, fmt.Errorf("%w: %w", core.ErrMalformedInput, ErrOfferTooLarge)
	}

	var raw string
	if isJSON(r.Header.Get("Content-Type"), body) {
		raw, err = offerFromJSON(body)
		if err != nil {
			return Offer{}, fmt.Errorf("%w: %w", core.ErrMalformedInput, err)
		}
	} else {
		raw = string(body)
	}

	if !strings.HasPrefix(strings.TrimLeft(raw, " \t\r\n"), "v=") {
		return Offer{}, fmt.Errorf("%w: %w", core.ErrMalformedInput, ErrNotSDP)
	}
	offer := Offer{SDP: terminateLines(raw)}
	offer.Summary, err = sdpcodec.Inspect(offer.SDP)
	if err != nil {
		log.Warn().Err(err).Str("module", "stream").Msg("offer is not strictly valid sdp, relaying as is")
	}
	return offer, nil
}

// terminateLines ends the last line with the body's own line break, CRLF
// when it has none to copy.
func terminateLines(body string) string {
	if strings.HasSuffix(body, "\n") {
		return body
	}
	if strings.Contains(body, "\n") && !strings.Contains(body, "\r\n") {
		return body + "\n"
	}
	return body + "\r\n"
}

func isJSON(contentType string, body []byte) bool {
	if strings.HasPrefix(contentType, "application/json") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))
}

func offerFromJSON(body []byte) (string, error) {
	var env struct {
		SDP json.RawMessage `json:"sdp"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	if len(env.SDP) == 0 {
		return "", errors.New("missing sdp")
	}

	var desc webrtc.SessionDescription
	src := body
	if env.SDP[0] != '"' {
		src = env.SDP
	}
	if err := json.Unmarshal(src, &desc); err != nil {
		return "", err
	}
	if desc.Type != webrtc.SDPTypeUnknown && desc.Type != webrtc.SDPTypeOffer {
		return "", fmt.Errorf("unexpected description type %s", desc.Type)
	}
	if strings.TrimSpace(desc.SDP) == "" {
		return "", errors.New("empty sdp")
	}
	return desc.SDP, nil
}
