package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const StateAnonymous State = "anonymous"
const StateAuthenticating State = "authenticating"
const StateAuthenticated State = "authenticated"

// StateErrored is never terminal: any new sign-in attempt moves the machine
// back to authenticating.
const StateErrored State = "error"

// Change is one session transition, delivered to subscribers without the
// controller asking for it.
type Change struct {
	Email   string    `json:"email"`
	OwnerID uuid.UUID `json:"owner_id"`
	State   State     `json:"state"`
	At      time.Time `json:"at"`
}

type hub struct {
	mtx    sync.Mutex
	states map[string]State
	subs   []chan Change
	closed bool
}

func newHub() *hub {
	return &hub{states: make(map[string]State)}
}

func (h *hub) stateOf(email string) State {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if s, ok := h.states[email]; ok {
		return s
	}
	return StateAnonymous
}

func (h *hub) subscribe() <-chan Change {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	ch := make(chan Change, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.subs = append(h.subs, ch)
	return ch
}

func (h *hub) transition(email string, ownerID uuid.UUID, state State) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return
	}

	if state == StateAnonymous {
		delete(h.states, email)
	} else {
		h.states[email] = state
	}

	change := Change{Email: email, OwnerID: ownerID, State: state, At: time.Now()}
	for _, ch := range h.subs {
		// A subscriber that stopped draining loses transitions rather than
		// blocking sign-in for everyone else.
		select {
		case ch <- change:
		default:
		}
	}
}

func (h *hub) close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
