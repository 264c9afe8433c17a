// Package discordtest provides an in-memory discord.Client that records
// every call, for tests of packages built on top of it.
package discordtest

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/foxseedlab/pwbot/internal/discord"
)

type SentMessage struct {
	ChannelID string
	Content   string
	Embed     *discord.Embed
	MessageID string
}

type EditedEmbed struct {
	ChannelID string
	MessageID string
	Embed     discord.Embed
}

type DeletedChannel struct {
	ChannelID string
	Reason    string
}

type ReactionCall struct {
	Op        string
	ChannelID string
	MessageID string
	Emoji     discord.Emoji
	UserID    string
}

type RoleCall struct {
	GuildID string
	UserID  string
	RoleID  string
}

// Fake methods fail with Errors[<method name>] when it is set.
type Fake struct {
	mu sync.Mutex

	BotUserID   string
	Channels    map[string]*discord.Channel
	History     map[string][]discord.Message
	Attachments map[string][]byte
	Managers    map[string]bool
	Errors      map[string]error

	Created         []discord.ChannelSpec
	DeletedChannels []DeletedChannel
	Sent            []SentMessage
	Files           []discord.FileMessage
	Edits           []EditedEmbed
	DeletedMessages []string
	Reactions       []ReactionCall
	Granted         []RoleCall
	Revoked         []RoleCall
	Purged          []string

	reactionHandlers []func(discord.ReactionEvent)
	commandHandlers  []func(discord.CommandEvent)
	nextID           int
}

func New() *Fake {
	return &Fake{
		BotUserID:   "bot-self",
		Channels:    map[string]*discord.Channel{},
		History:     map[string][]discord.Message{},
		Attachments: map[string][]byte{},
		Managers:    map[string]bool{},
		Errors:      map[string]error{},
	}
}

// SetError makes method fail with err, or succeed again when err is nil.
func (f *Fake) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, method)
		return
	}
	f.Errors[method] = err
}

func (f *Fake) fail(method string) error {
	return f.Errors[method]
}

func (f *Fake) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *Fake) Connect(context.Context) error { return nil }
func (f *Fake) Close() error                  { return nil }

func (f *Fake) GetBotUserID() (string, error) {
	return f.BotUserID, nil
}

func (f *Fake) RegisterReactionHandler(handler func(discord.ReactionEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactionHandlers = append(f.reactionHandlers, handler)
}

func (f *Fake) RegisterCommandHandler(_ string, handler func(discord.CommandEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commandHandlers = append(f.commandHandlers, handler)
}

// EmitReaction delivers ev to every registered reaction handler.
func (f *Fake) EmitReaction(ev discord.ReactionEvent) {
	f.mu.Lock()
	handlers := slices.Clone(f.reactionHandlers)
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// EmitCommand delivers ev to every registered command handler.
func (f *Fake) EmitCommand(ev discord.CommandEvent) {
	f.mu.Lock()
	handlers := slices.Clone(f.commandHandlers)
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *Fake) ResolveChannel(_ context.Context, channelID string) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ResolveChannel"); err != nil {
		return nil, err
	}
	ch, ok := f.Channels[channelID]
	if !ok {
		return nil, nil
	}
	copied := *ch
	return &copied, nil
}

func (f *Fake) CreateChannel(_ context.Context, spec discord.ChannelSpec) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateChannel"); err != nil {
		return nil, err
	}
	f.Created = append(f.Created, spec)
	ch := &discord.Channel{ID: f.newID("channel"), GuildID: spec.GuildID, Name: spec.Name}
	f.Channels[ch.ID] = ch
	copied := *ch
	return &copied, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteChannel"); err != nil {
		return err
	}
	f.DeletedChannels = append(f.DeletedChannels, DeletedChannel{ChannelID: channelID, Reason: reason})
	delete(f.Channels, channelID)
	return nil
}

func (f *Fake) SendChannelMessage(_ context.Context, channelID, content string, embed *discord.Embed) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SendChannelMessage"); err != nil {
		return nil, err
	}
	id := f.newID("message")
	var copied *discord.Embed
	if embed != nil {
		e := *embed
		copied = &e
	}
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, Content: content, Embed: copied, MessageID: id})
	return &discord.Message{ID: id, ChannelID: channelID, AuthorID: f.BotUserID, Content: content}, nil
}

func (f *Fake) SendChannelMessageWithFile(_ context.Context, msg discord.FileMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SendChannelMessageWithFile"); err != nil {
		return err
	}
	f.Files = append(f.Files, msg)
	return nil
}

func (f *Fake) EditMessageEmbed(_ context.Context, channelID, messageID string, embed discord.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EditMessageEmbed"); err != nil {
		return err
	}
	f.Edits = append(f.Edits, EditedEmbed{ChannelID: channelID, MessageID: messageID, Embed: embed})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteMessage"); err != nil {
		return err
	}
	f.DeletedMessages = append(f.DeletedMessages, channelID+"/"+messageID)
	return nil
}

func (f *Fake) react(op, channelID, messageID string, emoji discord.Emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(op); err != nil {
		return err
	}
	f.Reactions = append(f.Reactions, ReactionCall{Op: op, ChannelID: channelID, MessageID: messageID, Emoji: emoji, UserID: userID})
	return nil
}

func (f *Fake) AddReaction(_ context.Context, channelID, messageID string, emoji discord.Emoji) error {
	return f.react("AddReaction", channelID, messageID, emoji, "")
}

func (f *Fake) RemoveReaction(_ context.Context, channelID, messageID string, emoji discord.Emoji, userID string) error {
	return f.react("RemoveReaction", channelID, messageID, emoji, userID)
}

func (f *Fake) RemoveOwnReaction(_ context.Context, channelID, messageID string, emoji discord.Emoji) error {
	return f.react("RemoveOwnReaction", channelID, messageID, emoji, "")
}

func (f *Fake) ClearReactions(_ context.Context, channelID, messageID string) error {
	return f.react("ClearReactions", channelID, messageID, discord.Emoji{}, "")
}

// ReactionCalls returns the recorded reaction calls with the given op.
func (f *Fake) ReactionCalls(op string) []ReactionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ReactionCall
	for _, r := range f.Reactions {
		if r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

func (f *Fake) FetchPinned(_ context.Context, channelID string) ([]discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchPinned"); err != nil {
		return nil, err
	}
	var out []discord.Message
	for _, m := range f.History[channelID] {
		if m.Pinned {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) FetchHistory(_ context.Context, channelID string) iter.Seq2[discord.Message, error] {
	return func(yield func(discord.Message, error) bool) {
		f.mu.Lock()
		err := f.fail("FetchHistory")
		history := slices.Clone(f.History[channelID])
		f.mu.Unlock()
		if err != nil {
			yield(discord.Message{}, err)
			return
		}
		for _, m := range history {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (f *Fake) PurgeMessages(_ context.Context, channelID string, keep func(discord.Message) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("PurgeMessages"); err != nil {
		return 0, err
	}
	var kept []discord.Message
	deleted := 0
	for _, m := range f.History[channelID] {
		if keep != nil && keep(m) {
			kept = append(kept, m)
			continue
		}
		f.Purged = append(f.Purged, m.ID)
		deleted++
	}
	f.History[channelID] = kept
	return deleted, nil
}

func (f *Fake) DownloadAttachment(_ context.Context, a discord.Attachment) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DownloadAttachment"); err != nil {
		return nil, err
	}
	body, ok := f.Attachments[a.ID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", a.ID)
	}
	return body, nil
}

func (f *Fake) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GrantRole"); err != nil {
		return err
	}
	f.Granted = append(f.Granted, RoleCall{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func (f *Fake) RevokeRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RevokeRole"); err != nil {
		return err
	}
	f.Revoked = append(f.Revoked, RoleCall{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func (f *Fake) CanManageGuild(_ context.Context, _, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CanManageGuild"); err != nil {
		return false, err
	}
	return f.Managers[userID], nil
}

// SentCount returns how many plain or embed messages were sent.
func (f *Fake) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

var _ discord.Client = (*Fake)(nil)
