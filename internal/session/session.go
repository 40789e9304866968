// Package session implements the client side of the session lifecycle: a
// small state machine over a stored token and its server-issued expiry.
// Persistence is an injected capability so callers decide where the session
// lives (a dotfile for the CLI, memory for tests).
package session

import (
	"time"

	"github.com/google/uuid"
)

// State is the observed session state.
type State int

const (
	// Unauthenticated means no usable session is stored.
	Unauthenticated State = iota
	// Authenticated means a token is stored and its expiry is in the future.
	Authenticated
	// Expired means a token is stored but its expiry has passed. The guard
	// never leaves a session in this state: it clears it immediately.
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// Session is what a client keeps between requests. ExpiresAt is the expiry
// issued by the server at login; no second client-side timer exists.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists a session between invocations.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// Check is the pure decision function over a session and the current time.
//
//	no token                 -> Unauthenticated
//	token, expiry in future  -> Authenticated
//	token, expiry passed     -> Expired
//
// The boundary is inclusive: a session whose expiry equals now is already
// Expired. A session without a token is never Expired, whatever its expiry
// says.
func Check(s Session, now time.Time) State {
	if s.Token == "" {
		return Unauthenticated
	}
	if !s.ExpiresAt.After(now) {
		return Expired
	}
	return Authenticated
}

// Guard loads the stored session and evaluates it. An expired session is
// cleared from the store before returning, so the caller observes Expired
// exactly once and the next call starts from Unauthenticated. Protected
// actions must only proceed when the returned state is Authenticated; in any
// other state no request should be made.
func Guard(store Store, now time.Time) (Session, State, error) {
	sess, err := store.Load()
	if err != nil {
		return Session{}, Unauthenticated, err
	}
	state := Check(sess, now)
	if state == Expired {
		if err := store.Clear(); err != nil {
			return Session{}, Expired, err
		}
		return Session{}, Expired, nil
	}
	if state == Unauthenticated {
		return Session{}, Unauthenticated, nil
	}
	return sess, Authenticated, nil
}

// Logout clears any stored session. Tokens are stateless, so logout is purely
// a client-side act.
func Logout(store Store) error {
	return store.Clear()
}
