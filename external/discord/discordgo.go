package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/pwbot/internal/discord"
)

const (
	historyPageSize = 100
	pinsPageSize    = 50
	// Discord refuses bulk deletion of messages older than two weeks.
	bulkDeleteMaxAge = 14*24*time.Hour - time.Hour
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsGuildMessageReactions |
			discordgo.IntentsMessageContent,
	)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) RegisterReactionHandler(handler func(discordpkg.ReactionEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r == nil || r.MessageReaction == nil {
			return
		}
		handler(reactionEvent(r.MessageReaction, true))
	})
	c.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		if r == nil || r.MessageReaction == nil {
			return
		}
		handler(reactionEvent(r.MessageReaction, false))
	})
}

func reactionEvent(r *discordgo.MessageReaction, added bool) discordpkg.ReactionEvent {
	return discordpkg.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     discordpkg.Emoji{ID: r.Emoji.ID, Name: r.Emoji.Name},
		Added:     added,
	}
}

func (c *Client) RegisterCommandHandler(prefix string, handler func(discordpkg.CommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, mc *discordgo.MessageCreate) {
		if mc == nil || mc.Message == nil || mc.Author == nil {
			return
		}
		if mc.Author.Bot || mc.GuildID == "" {
			return
		}
		name, args, ok := parseCommand(prefix, mc.Content)
		if !ok {
			return
		}
		slog.Info("command received", "guild_id", mc.GuildID, "channel_id", mc.ChannelID, "command", name, "user_id", mc.Author.ID)
		channelID := mc.ChannelID
		handler(discordpkg.CommandEvent{
			GuildID:   mc.GuildID,
			ChannelID: channelID,
			MessageID: mc.ID,
			AuthorID:  mc.Author.ID,
			Name:      name,
			Args:      args,
			Reply: func(content string) error {
				_, err := s.ChannelMessageSend(channelID, content)
				return err
			},
		})
	})
}

func parseCommand(prefix, content string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (c *Client) ResolveChannel(ctx context.Context, channelID string) (*discordpkg.Channel, error) {
	ch := c.resolveChannel(channelID)
	if ch != nil {
		return &discordpkg.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isRESTNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &discordpkg.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

func (c *Client) resolveChannel(channelID string) *discordgo.Channel {
	if c.session == nil || c.session.State == nil {
		return nil
	}
	channel, err := c.session.State.Channel(channelID)
	if err != nil || channel == nil {
		return nil
	}
	return channel
}

func (c *Client) CreateChannel(ctx context.Context, spec discordpkg.ChannelSpec) (*discordpkg.Channel, error) {
	category := c.resolveChannel(spec.CategoryID)
	if category == nil {
		fetched, err := c.session.Channel(spec.CategoryID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category %s: %w", spec.CategoryID, err)
		}
		category = fetched
	}
	ch, err := c.session.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             spec.CategoryID,
		PermissionOverwrites: channelOverwrites(spec.ReadAccessUserIDs, category.PermissionOverwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &discordpkg.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

// channelOverwrites grants each member view access, then layers the
// category's overwrites on top so the new channel stays in sync with it.
func channelOverwrites(memberIDs []string, inherited []*discordgo.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(memberIDs)+len(inherited))
	for _, id := range memberIDs {
		if slices.ContainsFunc(inherited, func(o *discordgo.PermissionOverwrite) bool { return o != nil && o.ID == id }) {
			continue
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		})
	}
	for _, o := range inherited {
		if o == nil {
			continue
		}
		copied := *o
		out = append(out, &copied)
	}
	return out
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	_, err := c.session.ChannelDelete(channelID, opts...)
	return err
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string, embed *discordpkg.Embed) (*discordpkg.Message, error) {
	send := &discordgo.MessageSend{Content: content}
	if embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toMessageEmbed(*embed)}
	}
	m, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	msg := toMessage(m)
	return &msg, nil
}

func (c *Client) SendChannelMessageWithFile(ctx context.Context, msg discordpkg.FileMessage) error {
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "application/zip", Reader: bytes.NewReader(msg.FileBody)},
		},
	}, discordgo.WithContext(ctx))
	return err
}

func (c *Client) EditMessageEmbed(ctx context.Context, channelID, messageID string, embed discordpkg.Embed) error {
	_, err := c.session.ChannelMessageEditEmbed(channelID, messageID, toMessageEmbed(embed), discordgo.WithContext(ctx))
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func toMessageEmbed(e discordpkg.Embed) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID string, emoji discordpkg.Emoji) error {
	return c.session.MessageReactionAdd(channelID, messageID, emoji.APIName(), discordgo.WithContext(ctx))
}

func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID string, emoji discordpkg.Emoji, userID string) error {
	return c.session.MessageReactionRemove(channelID, messageID, emoji.APIName(), userID, discordgo.WithContext(ctx))
}

func (c *Client) RemoveOwnReaction(ctx context.Context, channelID, messageID string, emoji discordpkg.Emoji) error {
	return c.session.MessageReactionRemove(channelID, messageID, emoji.APIName(), "@me", discordgo.WithContext(ctx))
}

func (c *Client) ClearReactions(ctx context.Context, channelID, messageID string) error {
	return c.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx))
}

func (c *Client) FetchPinned(ctx context.Context, channelID string) ([]discordpkg.Message, error) {
	var (
		out    []discordpkg.Message
		before *time.Time
	)
	for {
		page, err := c.session.ChannelMessagesPinned(channelID, before, pinsPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if page == nil || len(page.Items) == 0 {
			return out, nil
		}
		for _, item := range page.Items {
			if item == nil || item.Message == nil {
				continue
			}
			out = append(out, toMessage(item.Message))
		}
		if !page.HasMore {
			return out, nil
		}
		last := page.Items[len(page.Items)-1].PinnedAt
		before = &last
	}
}

func (c *Client) FetchHistory(ctx context.Context, channelID string) iter.Seq2[discordpkg.Message, error] {
	return func(yield func(discordpkg.Message, error) bool) {
		afterID := "0"
		for {
			page, err := c.session.ChannelMessages(channelID, historyPageSize, "", afterID, "", discordgo.WithContext(ctx))
			if err != nil {
				yield(discordpkg.Message{}, err)
				return
			}
			slices.SortFunc(page, func(a, b *discordgo.Message) int { return compareSnowflakes(a.ID, b.ID) })
			for _, m := range page {
				if m == nil {
					continue
				}
				if !yield(toMessage(m), nil) {
					return
				}
				afterID = m.ID
			}
			if len(page) < historyPageSize {
				return
			}
		}
	}
}

func (c *Client) PurgeMessages(ctx context.Context, channelID string, keep func(discordpkg.Message) bool) (int, error) {
	var (
		bulk    []string
		single  []string
		cutoff  = time.Now().Add(-bulkDeleteMaxAge)
		afterID = "0"
	)
	for {
		page, err := c.session.ChannelMessages(channelID, historyPageSize, "", afterID, "", discordgo.WithContext(ctx))
		if err != nil {
			return 0, err
		}
		for _, m := range page {
			if m == nil {
				continue
			}
			if compareSnowflakes(m.ID, afterID) > 0 {
				afterID = m.ID
			}
			if keep != nil && keep(toMessage(m)) {
				continue
			}
			created, err := discordgo.SnowflakeTimestamp(m.ID)
			if err == nil && created.After(cutoff) {
				bulk = append(bulk, m.ID)
			} else {
				single = append(single, m.ID)
			}
		}
		if len(page) < historyPageSize {
			break
		}
	}

	deleted := 0
	for chunk := range slices.Chunk(bulk, historyPageSize) {
		if len(chunk) == 1 {
			single = append(single, chunk[0])
			continue
		}
		if err := c.session.ChannelMessagesBulkDelete(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return deleted, err
		}
		deleted += len(chunk)
	}
	for _, id := range single {
		if err := c.session.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			if isRESTNotFound(err) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (c *Client) DownloadAttachment(ctx context.Context, attachment discordpkg.Attachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return nil, err
	}
	httpClient := http.DefaultClient
	if c.session != nil && c.session.Client != nil {
		httpClient = c.session.Client
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (c *Client) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (c *Client) CanManageGuild(ctx context.Context, channelID, userID string) (bool, error) {
	perms, err := c.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, err
	}
	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0, nil
}

func toMessage(m *discordgo.Message) discordpkg.Message {
	msg := discordpkg.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Pinned:    m.Pinned,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.String()
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, discordpkg.Attachment{ID: a.ID, Filename: a.Filename, URL: a.URL})
	}
	return msg
}

// compareSnowflakes orders ids numerically without parsing; snowflakes carry
// no leading zeros, so a longer id is always the larger one.
func compareSnowflakes(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}
