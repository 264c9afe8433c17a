package repository

import "time"

type TicketType int

const (
	TicketTypeTicket TicketType = iota
	TicketTypeReport
)

func (t TicketType) String() string {
	switch t {
	case TicketTypeTicket:
		return "ticket"
	case TicketTypeReport:
		return "report"
	default:
		return "unknown"
	}
}

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

type Ticket struct {
	ID        int64
	ChannelID string
	AuthorID  string
	Type      TicketType
	Issue     string
	Status    TicketStatus
	CreatedAt time.Time
	ClosedAt  *time.Time
}
