package repository

import (
	"context"
	"time"
)

type InsertTicketInput struct {
	ID        int64
	ChannelID string
	AuthorID  string
	Type      TicketType
	Issue     string
	CreatedAt time.Time
}

type TicketRepository interface {
	// NextTicketID issues a fresh id from the ticket sequence. Ids are never reused.
	NextTicketID(ctx context.Context) (int64, error)
	InsertTicket(ctx context.Context, input InsertTicketInput) error
	// GetTicketByChannel returns nil without error when no ticket owns the channel.
	GetTicketByChannel(ctx context.Context, channelID string) (*Ticket, error)
	TicketExistsForChannel(ctx context.Context, channelID string) (bool, error)
	MarkTicketClosed(ctx context.Context, ticketID int64, closedAt time.Time) error
}

type Repository interface {
	TicketRepository
	Ping(ctx context.Context) error
}
