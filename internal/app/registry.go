package app

import (
	"slices"
	"sync"

	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Conn       core.SignalConnection
	SDP        string
	Candidates []string
}

// PeerSession is a read-only copy of one role's registry entry.
type PeerSession struct {
	Role       domain.Role
	ConnID     string
	SDP        string
	Candidates []string
}

// SessionDTO is a read-only view for APIs (no transport fields).
type SessionDTO struct {
	Role       domain.Role `json:"role"`
	ConnID     string      `json:"conn_id"`
	HasSDP     bool        `json:"has_sdp"`
	Candidates int         `json:"candidates"`
}

// Registry maps each role to its single live transport and negotiation state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.Role]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.Role]*sessionEntry),
	}
}

// Attach makes conn the live transport for role. A previous transport is
// closed and reported; stored SDP and candidates survive the replacement.
func (r *Registry) Attach(role domain.Role, conn core.SignalConnection) (superseded bool) {
	r.mu.Lock()
	e, ok := r.sessions[role]
	var prev core.SignalConnection
	if ok {
		prev = e.Conn
		e.Conn = conn
	} else {
		r.sessions[role] = &sessionEntry{Conn: conn}
	}
	r.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
		log.Info().Str("module", "app.registry").Str("role", role.String()).
			Str("old_conn", prev.ID()).Str("conn", conn.ID()).Msg("superseded transport")
		return true
	}
	log.Info().Str("module", "app.registry").Str("role", role.String()).Str("conn", conn.ID()).Msg("attached")
	return false
}

func (r *Registry) Get(role domain.Role) (PeerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[role]
	if !ok {
		return PeerSession{}, false
	}
	return PeerSession{
		Role:       role,
		ConnID:     e.Conn.ID(),
		SDP:        e.SDP,
		Candidates: slices.Clone(e.Candidates),
	}, true
}

func (r *Registry) Conn(role domain.Role) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[role]; ok {
		return e.Conn, true
	}
	return nil, false
}

// IsCurrent reports whether connID is the live transport of role.
func (r *Registry) IsCurrent(role domain.Role, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[role]
	return ok && e.Conn.ID() == connID
}

func (r *Registry) SetSDP(role domain.Role, sdp string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[role]
	if !ok {
		return false
	}
	e.SDP = sdp
	return true
}

func (r *Registry) AppendCandidate(role domain.Role, line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[role]
	if !ok {
		return false
	}
	e.Candidates = append(e.Candidates, line)
	return true
}

// Detach removes role's entry on terminal close. A late close from an
// already superseded transport leaves the entry alone and returns false.
func (r *Registry) Detach(role domain.Role, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[role]
	if !ok || e.Conn.ID() != connID {
		return false
	}
	delete(r.sessions, role)
	log.Info().Str("module", "app.registry").Str("role", role.String()).Str("conn", connID).Msg("detached")
	return true
}

func (r *Registry) Snapshot() []SessionDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionDTO, 0, len(r.sessions))
	for _, role := range domain.Roles() {
		e, ok := r.sessions[role]
		if !ok {
			continue
		}
		out = append(out, SessionDTO{
			Role:       role,
			ConnID:     e.Conn.ID(),
			HasSDP:     e.SDP != "",
			Candidates: len(e.Candidates),
		})
	}
	return out
}
