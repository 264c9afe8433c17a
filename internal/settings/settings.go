package settings

import (
	"context"
	"strings"

	"github.com/foxseedlab/pwbot/internal/fault"
)

const (
	KeyTicketMessage   = "ticket_message"
	KeyReportMessage   = "report_message"
	KeyReactionMessage = "reaction_message"
	// KeyReactionRolePrefix addresses one entry of the emoji to role mapping,
	// e.g. "reaction_roles.123456789".
	KeyReactionRolePrefix = "reaction_roles."
)

// NoRole is the value that stores a mapping entry without a role.
const NoRole = "none"

// Settings are the values an administrator changes while the bot runs.
// A nil role in ReactionRoles marks an emoji that grants nothing.
type Settings struct {
	TicketMessage   string             `yaml:"ticket_message"`
	ReportMessage   string             `yaml:"report_message"`
	ReactionMessage string             `yaml:"reaction_message"`
	ReactionRoles   map[string]*string `yaml:"reaction_roles"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Settings) Clone() Settings {
	out := s
	out.ReactionRoles = make(map[string]*string, len(s.ReactionRoles))
	for k, v := range s.ReactionRoles {
		if v == nil {
			out.ReactionRoles[k] = nil
			continue
		}
		role := *v
		out.ReactionRoles[k] = &role
	}
	return out
}

// RoleFor reports the role bound to an emoji key. ok is false when the key
// is absent; a present key may still map to no role.
func (s Settings) RoleFor(emojiKey string) (roleID string, ok bool) {
	role, ok := s.ReactionRoles[emojiKey]
	if !ok || role == nil {
		return "", ok
	}
	return *role, true
}

// Apply sets key to value on s. Unknown keys are rejected.
func (s *Settings) Apply(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyTicketMessage:
		s.TicketMessage = value
	case KeyReportMessage:
		s.ReportMessage = value
	case KeyReactionMessage:
		s.ReactionMessage = value
	default:
		emojiKey, ok := strings.CutPrefix(key, KeyReactionRolePrefix)
		if !ok || emojiKey == "" {
			return fault.Validationf("settings.apply", "unknown setting %q", key)
		}
		if s.ReactionRoles == nil {
			s.ReactionRoles = make(map[string]*string)
		}
		if value == "" || strings.EqualFold(value, NoRole) {
			s.ReactionRoles[emojiKey] = nil
			return nil
		}
		s.ReactionRoles[emojiKey] = &value
	}
	return nil
}

type Store interface {
	// Get returns a snapshot; callers may keep it without further locking.
	Get() Settings
	// Update applies one key and persists the result before returning.
	Update(ctx context.Context, key, value string) error
}
