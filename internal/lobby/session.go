package lobby

import (
	"slices"
	"sync"
	"time"

	"github.com/foxseedlab/pwbot/internal/clock"
)

type ReasonKind int

const (
	ReasonManual ReasonKind = iota
	ReasonTimeout
	ReasonFull
)

func (k ReasonKind) String() string {
	switch k {
	case ReasonTimeout:
		return "timeout"
	case ReasonFull:
		return "full"
	default:
		return "manual"
	}
}

// Reason says why a lobby closed. Detail is the owner's free text for
// manual disbands and empty otherwise.
type Reason struct {
	Kind   ReasonKind
	Detail string
}

// Session is one active lobby. All fields below mu are guarded by it, and
// every event for the lobby is handled with mu held.
type Session struct {
	ownerID   string
	channelID string
	name      string
	required  int

	mu        sync.Mutex
	messageID string
	players   []string
	armed     bool
	timer     *clock.Timer
	expiresAt time.Time
	closed    bool
}

// Info is a point-in-time copy of a Session.
type Info struct {
	OwnerID   string
	ChannelID string
	MessageID string
	Name      string
	Required  int
	Players   []string
	ExpiresAt time.Time
}

func newSession(ownerID, channelID, name string, required int) *Session {
	return &Session{
		ownerID:   ownerID,
		channelID: channelID,
		name:      name,
		required:  required,
		players:   []string{ownerID},
		armed:     true,
	}
}

func (s *Session) hasPlayer(userID string) bool {
	return slices.Contains(s.players, userID)
}

func (s *Session) addPlayer(userID string) {
	s.players = append(s.players, userID)
}

func (s *Session) removePlayer(userID string) {
	s.players = slices.DeleteFunc(s.players, func(p string) bool { return p == userID })
}

func (s *Session) isFull() bool {
	return len(s.players) >= s.required
}

func (s *Session) infoLocked() Info {
	return Info{
		OwnerID:   s.ownerID,
		ChannelID: s.channelID,
		MessageID: s.messageID,
		Name:      s.name,
		Required:  s.required,
		Players:   slices.Clone(s.players),
		ExpiresAt: s.expiresAt,
	}
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}
