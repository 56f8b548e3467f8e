package hub

// Conn is a live connection handle the hub delivers events through.
// Send must not block: implementations buffer and report a drop with
// a false return instead of stalling the dispatch loop.
type Conn interface {
	ID() string
	Send(event string, payload any) bool
	Close()
}

// session pairs a connection with the identity asserted at login.
// The identity fields are empty until a login event arrives.
type session struct {
	conn   Conn
	email  string
	name   string
	avatar string
}

func (s *session) loggedIn() bool {
	return s.email != ""
}
