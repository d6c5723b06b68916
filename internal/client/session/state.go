// Package session owns the client's single session state.
//
// A Controller decides once per process whether stored credentials are
// still good (Bootstrap), installs new ones (Login, Adopt), drops them
// (Logout, ForceLogout) and keeps an authenticated session fresh with a
// background renewal loop. Every mutating operation is serialised by one
// lock held around "read state, call the gateway, commit"; readers never
// wait for the network.
package session

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vutto/internal/client/models"
)

// Kind tags the session state.
type Kind int

const (
	Unbootstrapped Kind = iota
	Bootstrapping
	Anonymous
	Authenticated
)

func (k Kind) String() string {
	switch k {
	case Unbootstrapped:
		return "unbootstrapped"
	case Bootstrapping:
		return "bootstrapping"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is one value of the session state. Token is set in Authenticated
// and, while the stored candidate is being validated, in Bootstrapping.
// Profile may be nil in Authenticated when the stored record was unreadable
// and the server could not be asked.
type State struct {
	Kind    Kind
	Token   string
	Profile *models.UserProfile
}

var (
	ErrIllegalTransition = errors.New("illegal session transition")
	ErrNotBootstrapped   = errors.New("session is not bootstrapped yet")
)

var transitions = map[Kind][]Kind{
	Unbootstrapped: {Bootstrapping, Anonymous},
	Bootstrapping:  {Anonymous, Authenticated},
	Anonymous:      {Anonymous, Authenticated},
	Authenticated:  {Authenticated, Anonymous},
}

func allowed(from, to Kind) bool {
	for _, k := range transitions[from] {
		if k == to {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	s.Profile = s.Profile.Clone()
	return s
}
