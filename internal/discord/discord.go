package discord

import (
	"context"
	"iter"
	"strings"
	"time"
)

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

type Attachment struct {
	ID       string
	Filename string
	URL      string
}

type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Pinned      bool
	Attachments []Attachment
}

type Embed struct {
	Title       string
	Description string
	Color       int
}

// ChannelSpec describes a text channel to create under a category. Members
// listed in ReadAccessUserIDs get view access on top of the category's
// overwrites; the category wins where both name the same target.
type ChannelSpec struct {
	GuildID           string
	CategoryID        string
	Name              string
	ReadAccessUserIDs []string
}

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Emoji is either a unicode emoji (Name only) or a custom emoji (Name and ID).
type Emoji struct {
	ID   string
	Name string
}

// ParseEmoji accepts the API form used in reaction endpoints: "name:id",
// "<:name:id>", "<a:name:id>" or a bare unicode emoji.
func ParseEmoji(s string) Emoji {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
		s = strings.TrimPrefix(strings.TrimPrefix(s, "a"), ":")
	}
	name, id, ok := strings.Cut(s, ":")
	if !ok {
		return Emoji{Name: s}
	}
	return Emoji{ID: id, Name: name}
}

func (e Emoji) APIName() string {
	if e.ID != "" {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

// Key is the lookup key used by configuration mappings: the numeric id for
// custom emoji, the emoji itself otherwise.
func (e Emoji) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Name
}

func (e Emoji) Matches(other Emoji) bool {
	if e.ID != "" || other.ID != "" {
		return e.ID == other.ID
	}
	return e.Name == other.Name
}

type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     Emoji
	Added     bool
}

type CommandEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Name      string
	Args      []string
	Reply     func(content string) error
}

func (e CommandEvent) RawArgs() string {
	return strings.Join(e.Args, " ")
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	GetBotUserID() (string, error)
	RegisterReactionHandler(handler func(ReactionEvent))
	RegisterCommandHandler(prefix string, handler func(CommandEvent))

	ResolveChannel(ctx context.Context, channelID string) (*Channel, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SendChannelMessage(ctx context.Context, channelID, content string, embed *Embed) (*Message, error)
	SendChannelMessageWithFile(ctx context.Context, msg FileMessage) error
	EditMessageEmbed(ctx context.Context, channelID, messageID string, embed Embed) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	AddReaction(ctx context.Context, channelID, messageID string, emoji Emoji) error
	RemoveReaction(ctx context.Context, channelID, messageID string, emoji Emoji, userID string) error
	RemoveOwnReaction(ctx context.Context, channelID, messageID string, emoji Emoji) error
	ClearReactions(ctx context.Context, channelID, messageID string) error

	FetchPinned(ctx context.Context, channelID string) ([]Message, error)
	// FetchHistory yields the channel's messages oldest first, fetching pages lazily.
	FetchHistory(ctx context.Context, channelID string) iter.Seq2[Message, error]
	// PurgeMessages deletes every message for which keep returns false and
	// reports how many were deleted.
	PurgeMessages(ctx context.Context, channelID string, keep func(Message) bool) (int, error)
	DownloadAttachment(ctx context.Context, attachment Attachment) ([]byte, error)

	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error
	CanManageGuild(ctx context.Context, channelID, userID string) (bool, error)
}

func Mention(userID string) string {
	return "<@" + userID + ">"
}
