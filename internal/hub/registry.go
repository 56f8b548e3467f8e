package hub

import (
	"sort"

	"github.com/chatline-im/chatline/internal/metrics"
)

// registry is the in-memory map of live connections. It is owned by the
// Hub and only ever touched from the dispatch goroutine, so it needs no
// locking. State lives for the process lifetime only.
type registry struct {
	sessions map[string]*session            // conn ID -> session
	byEmail  map[string]map[string]*session // email -> conn ID -> session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*session),
		byEmail:  make(map[string]map[string]*session),
	}
}

// add registers a connection. Identity is bound later, at login.
func (r *registry) add(conn Conn) *session {
	s := &session{conn: conn}
	r.sessions[conn.ID()] = s
	metrics.ConnectionsActive.Set(float64(len(r.sessions)))
	return s
}

// bind associates a session with an identity. A connection that logs in
// twice is re-indexed under the new email.
func (r *registry) bind(connID, email, name, avatar string) *session {
	s, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	if s.email != "" && s.email != email {
		r.unindex(s)
	}

	s.email = email
	s.name = name
	s.avatar = avatar

	conns, ok := r.byEmail[email]
	if !ok {
		conns = make(map[string]*session)
		r.byEmail[email] = conns
	}
	conns[connID] = s

	metrics.UsersOnline.Set(float64(len(r.byEmail)))
	return s
}

// remove deregisters a connection. Idempotent: removing an unknown ID is
// a no-op. Reports the session and whether it was the identity's last
// live connection.
func (r *registry) remove(connID string) (s *session, wasLast bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, connID)
	wasLast = r.unindex(s)

	metrics.ConnectionsActive.Set(float64(len(r.sessions)))
	metrics.UsersOnline.Set(float64(len(r.byEmail)))
	return s, wasLast
}

func (r *registry) unindex(s *session) (wasLast bool) {
	if s.email == "" {
		return false
	}
	conns, ok := r.byEmail[s.email]
	if !ok {
		return false
	}
	delete(conns, s.conn.ID())
	if len(conns) == 0 {
		delete(r.byEmail, s.email)
		return true
	}
	return false
}

// isOnline reports whether the identity has at least one live connection.
func (r *registry) isOnline(email string) bool {
	return len(r.byEmail[email]) > 0
}

// onlineEmails returns the current online set, sorted for deterministic
// snapshots.
func (r *registry) onlineEmails() []string {
	emails := make([]string, 0, len(r.byEmail))
	for email := range r.byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

// identity returns the display identity captured at login for an online
// email, preferring the most recently bound session.
func (r *registry) identity(email string) (name, avatar string, ok bool) {
	for _, s := range r.byEmail[email] {
		name, avatar, ok = s.name, s.avatar, true
	}
	return
}

// broadcast sends an event to every registered connection.
func (r *registry) broadcast(event string, payload any) {
	delivered := 0
	for _, s := range r.sessions {
		if s.conn.Send(event, payload) {
			delivered++
		} else {
			metrics.DroppedFrames.Inc()
		}
	}
	metrics.BroadcastFanout.Observe(float64(delivered))
}

// broadcastExcept sends an event to every connection except one.
func (r *registry) broadcastExcept(exceptID, event string, payload any) {
	delivered := 0
	for id, s := range r.sessions {
		if id == exceptID {
			continue
		}
		if s.conn.Send(event, payload) {
			delivered++
		} else {
			metrics.DroppedFrames.Inc()
		}
	}
	metrics.BroadcastFanout.Observe(float64(delivered))
}

// unicast sends an event to a single connection.
func (r *registry) unicast(connID, event string, payload any) {
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	if !s.conn.Send(event, payload) {
		metrics.DroppedFrames.Inc()
	}
}

// sendToEmails delivers an event to every connection of the given
// identities, skipping one connection ID (usually the originator).
func (r *registry) sendToEmails(emails []string, exceptID, event string, payload any) {
	delivered := 0
	for _, email := range emails {
		for id, s := range r.byEmail[email] {
			if id == exceptID {
				continue
			}
			if s.conn.Send(event, payload) {
				delivered++
			} else {
				metrics.DroppedFrames.Inc()
			}
		}
	}
	metrics.BroadcastFanout.Observe(float64(delivered))
}
