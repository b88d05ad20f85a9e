// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
)

// Role is a fixed logical peer slot tracked by the relay.
type Role string

const (
	RoleDevice Role = "device"
	RoleViewer Role = "viewer"
)

// legacy client ids still sent by deployed firmware and pages
const (
	legacyDeviceID = "ESP"
	legacyViewerID = "browserClient"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every role the relay serves.
func Roles() []Role { return []Role{RoleDevice, RoleViewer} }

func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleDevice), legacyDeviceID:
		return RoleDevice, nil
	case string(RoleViewer), legacyViewerID:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == RoleDevice {
		return RoleViewer
	}
	return RoleDevice
}

func (r Role) String() string { return string(r) }
