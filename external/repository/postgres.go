package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) NextTicketID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_id')`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) InsertTicket(ctx context.Context, input repository.InsertTicketInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tickets (id, channel_id, author_id, ticket_type, issue, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, 'open', $6)`,
		input.ID, input.ChannelID, input.AuthorID, int16(input.Type), input.Issue, input.CreatedAt)
	return err
}

func (r *PostgresRepository) GetTicketByChannel(ctx context.Context, channelID string) (*repository.Ticket, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, author_id, ticket_type, issue, status, created_at, closed_at
		 FROM tickets WHERE channel_id = $1`,
		channelID)
	var (
		t          repository.Ticket
		ticketType int16
		status     string
		closedAt   *time.Time
	)
	err := row.Scan(&t.ID, &t.ChannelID, &t.AuthorID, &ticketType, &t.Issue, &status, &t.CreatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Type = repository.TicketType(ticketType)
	t.Status = repository.TicketStatus(status)
	t.ClosedAt = closedAt
	return &t, nil
}

func (r *PostgresRepository) TicketExistsForChannel(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE channel_id = $1)`,
		channelID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) MarkTicketClosed(ctx context.Context, ticketID int64, closedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`,
		ticketID, closedAt)
	return err
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
