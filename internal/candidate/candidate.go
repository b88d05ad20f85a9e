// Package candidate parses ICE candidate attributes and tracks which ones
// were already forwarded to the device.
package candidate

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedCandidate = errors.New("malformed candidate")

const minFields = 8

// Candidate holds the fields of an ICE candidate attribute that the relay cares about.
type Candidate struct {
	Foundation string
	Component  string
	Protocol   string
	Priority   string
	IP         string
	Port       string
	Type       string

	// Only informational; never serialized.
	RelatedAddress string
	RelatedPort    string
}

// Identity is the dedup key of a candidate.
type Identity struct {
	Foundation string
	Component  string
	Protocol   string
	IP         string
	Port       string
}

func (id Identity) String() string {
	return strings.Join([]string{id.Foundation, id.Component, id.Protocol, id.IP, id.Port}, "-")
}

// Parse reads "candidate:<foundation> <component> <protocol> <priority> <ip> <port> typ <type> [...]".
// A leading "a=" is accepted so that Line output parses back.
func Parse(raw string) (Candidate, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "a=")
	parts := strings.Fields(s)
	if len(parts) < minFields {
		return Candidate{}, fmt.Errorf("%w: %d fields in %q", ErrMalformedCandidate, len(parts), raw)
	}

	_, foundation, ok := strings.Cut(parts[0], ":")
	if !ok || foundation == "" {
		return Candidate{}, fmt.Errorf("%w: no foundation in %q", ErrMalformedCandidate, raw)
	}

	c := Candidate{
		Foundation: foundation,
		Component:  parts[1],
		Protocol:   parts[2],
		Priority:   parts[3],
		IP:         parts[4],
		Port:       parts[5],
		Type:       parts[7],
	}
	if len(parts) > 9 {
		c.RelatedAddress = parts[9]
	}
	if len(parts) > 11 {
		c.RelatedPort = parts[11]
	}
	return c, nil
}

// Line renders the SDP attribute line the device expects. Related address,
// related port and extensions are dropped.
func (c Candidate) Line() string {
	return fmt.Sprintf("a=candidate:%s %s %s %s %s %s typ %s",
		c.Foundation, c.Component, c.Protocol, c.Priority, c.IP, c.Port, c.Type)
}

func (c Candidate) Identity() Identity {
	return Identity{
		Foundation: c.Foundation,
		Component:  c.Component,
		Protocol:   c.Protocol,
		IP:         c.IP,
		Port:       c.Port,
	}
}
