package ticket

import (
	"fmt"

	"github.com/foxseedlab/pwbot/internal/repository"
)

const (
	// Discord's "greyple".
	colorOpen = 0x99aab5

	messageTicketOpen = "Hey %s, thanks for opening a ticket. Describe what you need help with and a staff member will be with you shortly."
	messageReportOpen = "Thanks for your report, %s. Tell us who was involved and what happened; screenshots help. A moderator will review it soon."
)

func openMessage(t repository.TicketType, mention string) string {
	if t == repository.TicketTypeReport {
		return fmt.Sprintf(messageReportOpen, mention)
	}
	return fmt.Sprintf(messageTicketOpen, mention)
}
