package sdpcodec

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// Summary describes a parsed session description.
type Summary struct {
	Media      []string
	Candidates int
}

func (s Summary) HasAudio() bool {
	for _, m := range s.Media {
		if m == "audio" {
			return true
		}
	}
	return false
}

// Inspect parses body and reports its media sections. It fails on bodies a
// WebRTC stack would not accept.
func Inspect(body string) (Summary, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(body)); err != nil {
		return Summary{}, fmt.Errorf("parse sdp: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return Summary{}, fmt.Errorf("parse sdp: no media sections")
	}
	var s Summary
	for _, md := range desc.MediaDescriptions {
		s.Media = append(s.Media, md.MediaName.Media)
		for _, attr := range md.Attributes {
			if attr.Key == "candidate" {
				s.Candidates++
			}
		}
	}
	return s, nil
}
