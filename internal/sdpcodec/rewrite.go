// Package sdpcodec forces a fixed narrow-band audio codec into SDP bodies
// exchanged with the device.
package sdpcodec

import (
	"strconv"
	"strings"
)

const (
	DefaultPayloadType = 8
	DefaultEncoding    = "PCMA/8000"

	feedbackProfile = "RTP/SAVPF"
	plainProfile    = "RTP/SAVP"
)

// Rewriter binds PayloadType to Encoding in every audio section.
type Rewriter struct {
	PayloadType int
	Encoding    string
}

func NewRewriter(payloadType int, encoding string) Rewriter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return Rewriter{PayloadType: payloadType, Encoding: encoding}
}

func Default() Rewriter {
	return NewRewriter(DefaultPayloadType, DefaultEncoding)
}

func (rw Rewriter) rtpmapLine() string {
	return "a=rtpmap:" + strconv.Itoa(rw.PayloadType) + " " + rw.Encoding
}

// Rewrite edits every "m=audio" line and its section. Bodies without an
// audio section come back unchanged, and rewriting twice equals rewriting once.
func (rw Rewriter) Rewrite(body string) string {
	sep := "\n"
	if strings.Contains(body, "\r\n") {
		sep = "\r\n"
	}
	lines := strings.Split(body, sep)
	pt := strconv.Itoa(rw.PayloadType)
	rtpmap := rw.rtpmapLine()

	out := make([]string, 0, len(lines)+2)
	for i, line := range lines {
		if !strings.HasPrefix(line, "m=audio") {
			out = append(out, line)
			continue
		}
		out = append(out, rewriteMediaLine(line, pt))
		if !sectionHas(lines[i+1:], rtpmap) {
			out = append(out, rtpmap)
		}
	}
	return strings.Join(out, sep)
}

// rewriteMediaLine drops the feedback profile and appends pt to the format
// list unless it is already there.
// m=<media> <port> <proto> <fmt> ...
func rewriteMediaLine(line, pt string) string {
	fields := strings.Fields(line)
	if len(fields) >= 3 && strings.HasSuffix(fields[2], feedbackProfile) {
		fields[2] = strings.TrimSuffix(fields[2], feedbackProfile) + plainProfile
	}
	if len(fields) > 3 {
		for _, f := range fields[3:] {
			if f == pt {
				return strings.Join(fields, " ")
			}
		}
	}
	fields = append(fields, pt)
	return strings.Join(fields, " ")
}

// sectionHas scans the lines of one media section, stopping at the next "m=".
func sectionHas(rest []string, want string) bool {
	for _, l := range rest {
		if strings.HasPrefix(l, "m=") {
			return false
		}
		if strings.TrimRight(l, "\r ") == want {
			return true
		}
	}
	return false
}
