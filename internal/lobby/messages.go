package lobby

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/pwbot/internal/discord"
)

const (
	colorCyan         = 0x1abc9c
	colorUnvaultedRed = 0xe74c3c
	colorApricot      = 0xfbceb1

	MessageLobbyExists = "Please disband your old lobby before opening a new one."

	messageDisbandedNotice = "%s your lobby was disbanded."
	messageFullNotice      = "You have enough players to start a game! %s"
)

func titled(base, name string) string {
	if name == "" {
		return base + "!"
	}
	return fmt.Sprintf("%s: %s", base, name)
}

func announceEmbed(name string, required int) discord.Embed {
	return discord.Embed{
		Title:       titled("Looking for players", name),
		Description: fmt.Sprintf("If you are available for a game, react below.\nPlayers needed: %d", required),
		Color:       colorCyan,
	}
}

func closedEmbed(name string, reason Reason) discord.Embed {
	switch reason.Kind {
	case ReasonFull:
		return discord.Embed{
			Title:       titled("Lobby Full", name),
			Description: "This lobby reached the desired amount of players.",
			Color:       colorApricot,
		}
	case ReasonTimeout:
		return discord.Embed{
			Title:       titled("Lobby Disbanded", name),
			Description: "This lobby timed out before enough players joined.",
			Color:       colorUnvaultedRed,
		}
	default:
		description := "This lobby was disbanded."
		if reason.Detail != "" {
			description = "This lobby was disbanded: " + reason.Detail
		}
		return discord.Embed{
			Title:       titled("Lobby Disbanded", name),
			Description: description,
			Color:       colorUnvaultedRed,
		}
	}
}

func closedNotice(ownerID string, players []string, reason Reason) string {
	if reason.Kind == ReasonFull {
		mentions := make([]string, 0, len(players))
		for _, p := range players {
			mentions = append(mentions, discord.Mention(p))
		}
		return fmt.Sprintf(messageFullNotice, strings.Join(mentions, ", "))
	}
	return fmt.Sprintf(messageDisbandedNotice, discord.Mention(ownerID))
}
